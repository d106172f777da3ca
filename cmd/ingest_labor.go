package main

import (
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marylanddata/hanover-cli/internal/labor"
)

var (
	laborFile      string
	laborPeriod    string
	laborSourceURL string
)

var ingestLaborCmd = &cobra.Command{
	Use:   "labor-release",
	Short: "Parse a saved MD Labor monthly employment release",
	Long: `Parse a Maryland Department of Labor monthly employment news release,
saved verbatim as Markdown, into a typed document with provenance. Every
required figure must be found in the text or the command fails with no
output written.

Without --file the release is read from the conventional location
<data.root>/raw/labor/<slug>.md, e.g. data/raw/labor/mlraug2025.md.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		log := zap.L().With(zap.String("command", "ingest.labor-release"))

		p, err := labor.ParsePeriod(laborPeriod)
		if err != nil {
			return err
		}
		if laborFile == "" {
			laborFile = filepath.Join(cfg.Data.RawLaborDir(), p.Slug()+".md")
		}

		outPath := filepath.Join(cfg.Data.ProcessedDir(), p.String()+".json")
		rel, err := labor.NewIngestor().Ingest(laborFile, outPath, p, laborSourceURL)
		if err != nil {
			return eris.Wrapf(err, "ingest labor-release %s", p)
		}

		log.Info("ingest complete",
			zap.String("period", rel.Period),
			zap.String("output", outPath),
		)

		fmt.Println()
		printer.Printf("Maryland workforce (%s): decreased by %d jobs\n",
			rel.Period, rel.Highlights.JobsChangeTotal)
		printer.Printf("Federal jobs lost: %d this month, %d since January\n",
			rel.Highlights.FederalJobsChange, rel.Highlights.FederalJobsChangeYTD)
		printer.Printf("Unemployment: %.1f%% state, %.1f%% national\n",
			rel.Highlights.UnemploymentRate, rel.Highlights.NationalUnemploymentRate)
		fmt.Printf("Document: %s\n", outPath)
		return nil
	},
}

func init() {
	ingestLaborCmd.Flags().StringVar(&laborFile, "file", "", "path to the saved release Markdown (default: the conventional raw labor location)")
	ingestLaborCmd.Flags().StringVar(&laborPeriod, "period", "", "release month as YYYY-MM (required)")
	ingestLaborCmd.Flags().StringVar(&laborSourceURL, "source-url", "", "override the canonical release URL")
	_ = ingestLaborCmd.MarkFlagRequired("period")
	ingestCmd.AddCommand(ingestLaborCmd)
}
