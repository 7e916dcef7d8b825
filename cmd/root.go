// Package cmd implements the tag-track command line interface: a thin
// cobra/viper shell around the engine, config, and source packages.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dloez/tag-track/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command when tag-track is called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "tag-track",
	Short: "Compute and optionally create the next semantic version tag from commit history",
	Long: `tag-track walks commit history since the last matching tag, classifies
commits against configurable Conventional-Commits-style rules, and reports
(or creates) the next semantic version for one or more scopes.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Configure(cmd.OutOrStderr(), verbose)
	},
}

// Execute runs the root command, exiting non-zero on error per the
// documented CLI contract.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the tag-track configuration file (default: discovered .tag-track.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
