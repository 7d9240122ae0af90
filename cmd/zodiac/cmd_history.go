package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Nyukimin/daily-zodiac/internal/store"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

var historyLimit int

// historyCmd lists archived runs.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived generation runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	a, err := store.OpenArchive(cfg.Store.ArchivePath)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.List(ctx, historyLimit)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.AppendHeader(table.Row{"Run", "Date", "Created (JST)", "Generated", "Fallback"})
	for _, r := range runs {
		tw.AppendRow(table.Row{
			shortID(r.ID),
			r.Date,
			r.CreatedAt.In(types.JST).Format("2006-01-02 15:04:05"),
			r.Generated,
			r.Fallback,
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "runs", len(runs)})
	tw.Render()
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
