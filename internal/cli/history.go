package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	clierrors "github.com/ariel-frischer/shipver/internal/errors"
	"github.com/ariel-frischer/shipver/internal/history"
)

func newHistoryCmd(g *globalOptions) *cobra.Command {
	var (
		limit    int
		status   string
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:     "history",
		GroupID: GroupConfiguration,
		Short:   "Show past release attempts on this machine",
		Long: `Show the release attempts recorded in the state directory (state_dir),
newest first, with the version, status and hosting URL of each.`,
		Example: `  shipver history
  shipver history --status failed -n 5
  shipver history --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return clierrors.NewArgumentError(fmt.Sprintf("limit must be positive, got %d", limit))
			}
			s, err := g.loadSession(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			return runHistory(cmd.OutOrStdout(), s.cfg.StateDir, history.Status(status), limit, clearAll)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the N most recent entries")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (published, committed, failed, dry-run, no-release)")
	cmd.Flags().BoolVarP(&clearAll, "clear", "c", false, "Delete all recorded history")
	return cmd
}

func runHistory(out io.Writer, stateDir string, status history.Status, limit int, clearAll bool) error {
	if clearAll {
		if err := history.Clear(stateDir); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		fmt.Fprintln(out, "History cleared.")
		return nil
	}

	f, err := history.Load(stateDir)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	entries := f.Filter(status, limit)
	if len(entries) == 0 {
		if status != "" {
			fmt.Fprintf(out, "No entries with status '%s'.\n", status)
		} else {
			fmt.Fprintln(out, "No history available.")
		}
		return nil
	}

	displayEntries(out, entries)
	return nil
}

func displayEntries(out io.Writer, entries []history.Entry) {
	cyan := color.New(color.FgCyan).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for _, e := range entries {
		version := e.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(out, "%s  %-8s  %-12s  %s  %s\n",
			cyan(e.Timestamp.Format("2006-01-02 15:04:05")),
			e.Command,
			version,
			statusLabel(e.Status),
			dim(e.Duration),
		)
		switch {
		case e.Error != "":
			fmt.Fprintf(out, "    %s %s\n", dim("stage "+e.Stage+":"), e.Error)
		case e.URL != "":
			fmt.Fprintf(out, "    %s\n", e.URL)
		}
	}
}

func statusLabel(s history.Status) string {
	label := fmt.Sprintf("%-10s", s)
	switch s {
	case history.StatusPublished:
		return color.New(color.FgGreen).Sprint(label)
	case history.StatusFailed:
		return color.New(color.FgRed).Sprint(label)
	case history.StatusCommitted:
		return color.New(color.FgYellow).Sprint(label)
	default:
		return label
	}
}
