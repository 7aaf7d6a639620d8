package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tabsort/internal/browser"
	"tabsort/internal/config"
	"tabsort/internal/logger"
	"tabsort/internal/service"
	"tabsort/internal/tui"
)

var (
	sortSnapshot string
	sortOut      string
	sortTUI      bool
	sortProvider string
	sortFilter   browser.FilterOptions
	sortExclude  []string
)

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Assign a topic to every tab in a snapshot",
	Long: `Read a host snapshot ({"active_workspace": "...", "tabs": [...]}), run one
sort over the candidate tabs of the active workspace and print the grouping
plan as JSON. Tabs already in a group define the existing groups.

Examples:
  tabsort sort --snapshot tabs.json
  tabsort sort --snapshot tabs.json --provider remote --out plan.json
  tabsort sort --snapshot tabs.json --tui`,
	RunE: runSort,
}

func init() {
	sortCmd.Flags().StringVarP(&sortSnapshot, "snapshot", "s", "", "Path to the tab snapshot JSON (required)")
	sortCmd.Flags().StringVarP(&sortOut, "out", "o", "", "Write the plan to this file instead of stdout")
	sortCmd.Flags().BoolVar(&sortTUI, "tui", false, "Browse the result interactively")
	sortCmd.Flags().StringVar(&sortProvider, "provider", "", "Override the configured provider (local|remote)")
	sortCmd.Flags().BoolVar(&sortFilter.IncludePinned, "include-pinned", false, "Also sort pinned tabs")
	sortCmd.Flags().BoolVar(&sortFilter.ExcludeSelected, "exclude-selected", false, "Leave the selected tab alone")
	sortCmd.Flags().StringSliceVar(&sortExclude, "exclude-url", nil, "Glob pattern of tab URLs to leave alone (repeatable)")
	_ = sortCmd.MarkFlagRequired("snapshot")
	rootCmd.AddCommand(sortCmd)
}

func runSort(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if sortProvider != "" {
		cfg.Provider = config.Provider(sortProvider)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if sortTUI {
		// console output would tear the alt screen
		cfg.Logging.Console = false
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	snap, err := browser.LoadSnapshot(sortSnapshot)
	if err != nil {
		return err
	}
	opts := sortFilter
	opts.Exclude, err = browser.NewURLMatcher(append(append([]string(nil), cfg.Filter.ExcludeURLs...), sortExclude...))
	if err != nil {
		return err
	}
	tabs := browser.Filter(snap.Tabs, snap.ActiveWorkspace, opts)
	groups := snap.ExistingGroups()

	sorter, closeSorter, err := newSorter(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSorter(); err != nil {
			log.Warn("closing embedding backend", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	res := sorter.Sort(ctx, tabs, groups)

	if sortTUI {
		m := tui.New(sorter, tabs, groups, res)
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if sortOut != "" {
		f, err := os.Create(sortOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := writePlan(w, res); err != nil {
		return err
	}
	if sortOut != "" {
		printSummary(cmd.ErrOrStderr(), res, sortOut)
	}
	return nil
}

func printSummary(w io.Writer, res service.Result, path string) {
	switch {
	case res.Skipped:
		color.New(color.FgYellow).Fprintln(w, "sort skipped: another run is in progress")
	case res.Failed:
		color.New(color.FgRed).Fprintf(w, "no groups formed for %d tabs, plan written to %s\n", len(res.Assignments), path)
	default:
		color.New(color.FgGreen).Fprintf(w, "%d tabs sorted into %d groups, plan written to %s\n", len(res.Assignments), len(res.Groups), path)
	}
}

type planAssignment struct {
	TabID string `json:"tab_id"`
	Title string `json:"title"`
	Topic string `json:"topic"`
}

type planGroup struct {
	Label    string   `json:"label"`
	Existing bool     `json:"existing"`
	TabIDs   []string `json:"tab_ids"`
}

type plan struct {
	RunID       string           `json:"run_id,omitempty"`
	Provider    string           `json:"provider"`
	Assignments []planAssignment `json:"assignments"`
	Groups      []planGroup      `json:"groups"`
	Failed      bool             `json:"failed"`
	Skipped     bool             `json:"skipped"`
}

func toPlan(res service.Result) plan {
	p := plan{
		RunID:       res.RunID,
		Provider:    string(res.Provider),
		Assignments: make([]planAssignment, 0, len(res.Assignments)),
		Groups:      make([]planGroup, 0, len(res.Groups)),
		Failed:      res.Failed,
		Skipped:     res.Skipped,
	}
	for _, a := range res.Assignments {
		p.Assignments = append(p.Assignments, planAssignment{TabID: a.Tab.ID, Title: browser.Title(a.Tab), Topic: a.Topic})
	}
	for _, g := range res.Groups {
		ids := make([]string, len(g.Tabs))
		for i, t := range g.Tabs {
			ids[i] = t.ID
		}
		p.Groups = append(p.Groups, planGroup{Label: g.Label, Existing: g.Existing, TabIDs: ids})
	}
	return p
}

func writePlan(w io.Writer, res service.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toPlan(res))
}
