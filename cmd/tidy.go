package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marylanddata/hanover-cli/internal/rawstore"
)

var tidyDryRun bool

var tidyCmd = &cobra.Command{
	Use:   "tidy",
	Short: "Move misplaced raw artifacts into the canonical raw root",
	Long: `Move raw artifacts out of the configured legacy locations into the
canonical raw root, preserving relative paths. A file whose identical twin
already exists in the canonical root is skipped; a name collision with
different content is renamed, never overwritten. With --dry-run the plan is
printed and nothing moves.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var all []rawstore.TidyAction
		for _, legacy := range cfg.Data.LegacyRawDirs {
			actions, err := rawstore.Tidy(legacy, cfg.Data.RawDir(), tidyDryRun)
			if err != nil {
				return eris.Wrapf(err, "tidy %s", legacy)
			}
			all = append(all, actions...)
		}

		if len(all) == 0 {
			zap.L().Info("nothing to tidy", zap.Strings("legacy_dirs", cfg.Data.LegacyRawDirs))
			fmt.Println("No misplaced raw artifacts found.")
			return nil
		}

		formatTidyActions(os.Stdout, all)
		if tidyDryRun {
			fmt.Println("\nDry run: nothing was moved.")
		}
		return nil
	},
}

func init() {
	tidyCmd.Flags().BoolVar(&tidyDryRun, "dry-run", false, "print the plan without moving anything")
	rootCmd.AddCommand(tidyCmd)
}

// formatTidyActions writes a tabular representation of tidy decisions to w.
func formatTidyActions(out io.Writer, actions []rawstore.TidyAction) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ACTION\tSOURCE\tDEST")
	_, _ = fmt.Fprintln(w, "------\t------\t----")

	for _, a := range actions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", a.Action, a.Source, a.Dest)
	}
	_ = w.Flush()
}
