package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marylanddata/hanover-cli/internal/runlog"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection run history",
	Long:  "Displays recent runs recorded in the run log, newest first.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		store, err := openRunLog(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		entries, err := store.List(ctx, statusLimit)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		if len(entries) == 0 {
			zap.L().Info("no runs recorded, run 'collect baseline' to start collecting")
			return nil
		}

		formatRunEntries(os.Stdout, entries, time.Now())
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "maximum runs to show")
	rootCmd.AddCommand(statusCmd)
}

// formatRunEntries writes a tabular representation of run history to w.
func formatRunEntries(out io.Writer, entries []runlog.Entry, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMMAND\tSTATUS\tSTARTED\tDURATION\tARTIFACTS\tERROR")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t-------\t--------\t---------\t-----")

	for _, e := range entries {
		dur := e.Duration(now).Round(time.Second).String()
		if e.Status == runlog.StatusRunning {
			dur += "+"
		}

		errMsg := ""
		if e.Error != "" {
			errMsg = truncate(e.Error, 60)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			shortID(e.ID),
			e.Command,
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			len(e.Artifacts),
			errMsg,
		)
	}
	_ = w.Flush()
}

// shortID keeps the first uuid group, plenty to tell runs apart in a table.
func shortID(id string) string {
	if i := strings.Index(id, "-"); i > 0 {
		return id[:i]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
