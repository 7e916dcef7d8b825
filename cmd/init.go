package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dloez/tag-track/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter configuration file",
	Long:  `Scaffolds a configuration file with the documented defaults at path (default: .tag-track.yaml).`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing configuration file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := ".tag-track.yaml"
	if len(args) > 0 {
		path = args[0]
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("init: %s already exists, pass --force to overwrite", path)
		}
	}

	if err := config.WriteDefault(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
