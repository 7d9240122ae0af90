package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Nyukimin/daily-zodiac/internal/site"
)

var checkDir string

// checkCmd inspects a published site for structural defects.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the published site for missing pages, links and hooks",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkDir, "dir", "", "Site directory (default: site.out_dir)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := firstNonEmpty(checkDir, cfg.Site.OutDir)
	out := cmd.OutOrStdout()

	issues, err := site.Check(dir, cfg.NormalizedBasePath())
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		printOK(out, "%s: no issues (base %s)", dir, cfg.NormalizedBasePath())
		return nil
	}

	warn := color.New(color.FgYellow).SprintFunc()
	for _, issue := range issues {
		fmt.Fprintf(out, "  %s %s\n", warn("-"), issue)
	}
	printNG(out, "%s: %d issue(s)", dir, len(issues))
	return fmt.Errorf("site check found %d issue(s)", len(issues))
}
