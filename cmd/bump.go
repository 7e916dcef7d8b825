package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dloez/tag-track/internal/config"
	"github.com/dloez/tag-track/internal/engine"
	"github.com/dloez/tag-track/internal/source"
)

var (
	bumpCreateTag    bool
	bumpGitHubRepo   string
	bumpGitHubToken  string
	bumpCommitSHA    string
	bumpOutputFormat string
	bumpRepoPath     string
	bumpBranch       string
)

var bumpCmd = &cobra.Command{
	Use:   "bump",
	Short: "Compute the next version for every configured scope",
	Long: `Walks commit history since each scope's closest matching tag, classifies
commits against the configured bump rules, and reports the resulting
version bumps. With --create-tag, matching tags are created on the source.`,
	RunE: runBump,
}

func init() {
	rootCmd.AddCommand(bumpCmd)

	bumpCmd.Flags().BoolVar(&bumpCreateTag, "create-tag", false, "create the computed tags on the source")
	bumpCmd.Flags().StringVar(&bumpGitHubRepo, "github-repo", "", "owner/repo to use the GitHub REST source instead of a local repository")
	bumpCmd.Flags().StringVar(&bumpGitHubToken, "github-token", "", "GitHub token for the REST source (falls back to unauthenticated if empty)")
	bumpCmd.Flags().StringVar(&bumpCommitSHA, "commit-sha", "", "commit to compute bumps up to (default: source HEAD)")
	bumpCmd.Flags().StringVar(&bumpOutputFormat, "output-format", "text", "report output format: text or json")
	bumpCmd.Flags().StringVar(&bumpRepoPath, "repo-path", ".", "path to the local git repository (ignored with --github-repo)")
	bumpCmd.Flags().StringVar(&bumpBranch, "branch", "main", "branch to resolve HEAD from (ignored with --github-repo)")
}

func runBump(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}

	src, err := buildSource(cmd.Context())
	if err != nil {
		return err
	}

	report := eng.Run(cmd.Context(), src, engine.RunOptions{
		TargetCommit: bumpCommitSHA,
		CreateTags:   bumpCreateTag,
	})

	if err := renderReport(cmd, report); err != nil {
		return err
	}

	if report.Error != "" {
		return fmt.Errorf("%s", report.Error)
	}
	return nil
}

func buildSource(ctx context.Context) (source.Source, error) {
	if bumpGitHubRepo != "" {
		return source.NewGitHub(ctx, bumpGitHubRepo, bumpGitHubToken)
	}
	return source.NewLocal(bumpRepoPath, bumpBranch)
}

func renderReport(cmd *cobra.Command, report engine.Report) error {
	switch strings.ToLower(bumpOutputFormat) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "text", "":
		printTextReport(cmd, report)
		return nil
	default:
		return fmt.Errorf("bump: unsupported --output-format %q, use text or json", bumpOutputFormat)
	}
}

func printTextReport(cmd *cobra.Command, report engine.Report) {
	out := cmd.OutOrStdout()
	if len(report.VersionBumps) == 0 {
		fmt.Fprintln(out, "no version bump")
	}
	for _, b := range report.VersionBumps {
		scope := b.Scope
		if scope == "" {
			scope = "(unscoped)"
		}
		fmt.Fprintf(out, "%s: %s -> %s (%s)\n", scope, b.OldVersion, b.NewVersion, b.IncrementKind)
	}
	if report.TagCreated {
		fmt.Fprintf(out, "created tags: %s\n", strings.Join(report.NewTags, ", "))
	}
	if len(report.SkippedCommits) > 0 {
		fmt.Fprintf(out, "skipped commits: %s\n", strings.Join(report.SkippedCommits, ", "))
	}
	if report.Error != "" {
		fmt.Fprintf(out, "error: %s\n", report.Error)
	}
}
