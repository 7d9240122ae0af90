package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Nyukimin/daily-zodiac/internal/config"
	"github.com/Nyukimin/daily-zodiac/internal/store"
	"github.com/Nyukimin/daily-zodiac/internal/types"
	"github.com/Nyukimin/daily-zodiac/internal/ui"
)

var (
	showDate  string
	showScope string
	showStyle string
	showWidth int
)

// showCmd prints a cached payload as rendered markdown.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a generated day in the terminal",
	RunE:  runShow,
}

// browseCmd opens the interactive browser on a cached payload.
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse a generated day interactively",
	RunE:  runBrowse,
}

func init() {
	showCmd.Flags().StringVar(&showDate, "date", "", "Date key YYYY-MM-DD (default: today in JST)")
	showCmd.Flags().StringVar(&showScope, "scope", "", "Only show one scope: global or a sign slug")
	showCmd.Flags().StringVar(&showStyle, "style", "", "glamour style: dark, light, notty (default: auto)")
	showCmd.Flags().IntVar(&showWidth, "width", 80, "Word wrap width")

	browseCmd.Flags().StringVar(&showDate, "date", "", "Date key YYYY-MM-DD (default: today in JST)")
}

// loadCachedPayload reads <data_dir>/<date>.json.
func loadCachedPayload(cfg *config.Config, dateFlag string) (*types.DailyPayload, error) {
	dateKey, err := resolveDate(dateFlag)
	if err != nil {
		return nil, err
	}
	payload, err := store.LoadDaily(store.DailyPath(cfg.Store.DataDir, dateKey))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no payload for %s; run `zodiac generate --date %s` first", dateKey, dateKey)
	}
	return payload, err
}

func parseScope(s string) (types.Scope, error) {
	if s == "" || s == string(types.Global) {
		return types.Global, nil
	}
	sign, err := types.ParseSign(s)
	if err != nil {
		return "", err
	}
	return types.ScopeOf(sign), nil
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	payload, err := loadCachedPayload(cfg, showDate)
	if err != nil {
		return err
	}

	md := ui.Markdown(payload)
	if showScope != "" {
		scope, err := parseScope(showScope)
		if err != nil {
			return err
		}
		md = ui.ScopeMarkdown(payload, scope)
	}

	out, err := ui.RenderMarkdown(md, showStyle, showWidth)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	payload, err := loadCachedPayload(cfg, showDate)
	if err != nil {
		return err
	}
	return ui.Browse(payload)
}
