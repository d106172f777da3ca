package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marylanddata/hanover-cli/internal/census"
	"github.com/marylanddata/hanover-cli/internal/metrics"
	"github.com/marylanddata/hanover-cli/internal/runlog"
)

var collectBaselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Collect baseline demographics and housing metrics",
	Long: `Fetch the baseline ACS variable set (with margins of error) and the
decennial population baseline, archive both raw API responses, and write the
baseline metrics document with full provenance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "collect.baseline"))

		env, err := initCollect(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		entry, err := env.Runs.Start(ctx, "collect baseline")
		if err != nil {
			return eris.Wrap(err, "collect baseline: record run")
		}

		zcta, year := collectTarget()
		log.Info("starting baseline collection",
			zap.String("zcta", zcta),
			zap.Int("acs_year", year),
			zap.Int("decennial_year", cfg.Census.DecennialYear),
		)

		doc, result, err := collectBaseline(ctx, env, zcta, year)
		closeRun(ctx, env.Runs, entry.ID, result, err)
		if err != nil {
			return eris.Wrap(err, "collect baseline")
		}

		printBaselineSummary(doc)
		return nil
	},
}

func init() {
	collectCmd.AddCommand(collectBaselineCmd)
}

// collectBaseline runs both fetches and derives the baseline document. Either
// fetch failing aborts the whole run; a document that silently lacked its
// population baseline would misstate growth.
func collectBaseline(ctx context.Context, env *collectEnv, zcta string, year int) (*metrics.Document, *runlog.Result, error) {
	geo := census.ZCTAGeography(zcta)

	acsVars := census.WithMOE(census.Codes(env.Catalog.Baseline))
	acsTable, acsProv, err := fetchAndArchive(ctx, env,
		census.ACSDataset(year), year, acsVars, geo,
		fmt.Sprintf("acs5_%d_zcta%s", year, zcta))
	if err != nil {
		return nil, nil, err
	}

	decYear := cfg.Census.DecennialYear
	decTable, decProv, err := fetchAndArchive(ctx, env,
		census.DecennialDataset(decYear), decYear,
		census.Codes(env.Catalog.Decennial), geo,
		fmt.Sprintf("decennial_%d_pl_zcta%s", decYear, zcta))
	if err != nil {
		return nil, nil, err
	}

	acsObs := acsTable.Observations(census.Labels(env.Catalog.Baseline))
	decObs := decTable.Observations(census.Labels(env.Catalog.Decennial))

	derived, methods, err := metrics.Baseline(acsObs, decObs)
	if err != nil {
		return nil, nil, err
	}
	quality := census.AssessQuality(acsObs, census.Codes(env.Catalog.Baseline))

	doc := &metrics.Document{
		Name:        metrics.DocBaseline,
		Geography:   "ZCTA " + zcta,
		GeneratedAt: time.Now().UTC(),
		Sources: map[string]metrics.SourceBlock{
			"census_acs5":         {Provenance: acsProv, Observations: acsObs},
			"census_decennial_pl": {Provenance: decProv, Observations: decObs},
		},
		Metrics: derived,
		Methods: methods,
		Quality: &quality,
	}
	if err := metrics.WriteDocument(cfg.Data.BaselineDocPath(), doc); err != nil {
		return nil, nil, err
	}

	result := &runlog.Result{
		Artifacts: []string{acsProv.StoragePath, decProv.StoragePath, cfg.Data.BaselineDocPath()},
		Metrics: map[string]float64{
			"metrics_derived": float64(len(derived)),
			"quality_score":   float64(quality.Score),
		},
	}
	return doc, result, nil
}

// printBaselineSummary echoes the headline metrics, skipping anything the
// calculator omitted.
func printBaselineSummary(doc *metrics.Document) {
	fmt.Println()
	fmt.Printf("Baseline metrics (%s)\n", doc.Geography)

	rows := []struct {
		key    string
		format string
	}{
		{"population", "  Population: %.0f\n"},
		{"growth_rate", "  Population growth: %.1f%%\n"},
		{"median_income", "  Median household income: $%.0f\n"},
		{"median_home_value", "  Median home value: $%.0f\n"},
		{"median_gross_rent", "  Median gross rent: $%.0f\n"},
		{"price_to_income_ratio", "  Price-to-income ratio: %.1f\n"},
		{"vacancy_rate", "  Vacancy rate: %.1f%%\n"},
		{"public_transit_rate", "  Public transit rate: %.1f%%\n"},
		{"work_from_home_rate", "  Work from home rate: %.1f%%\n"},
		{"college_plus_rate", "  College+ rate: %.1f%%\n"},
	}
	for _, r := range rows {
		if v, ok := doc.Metrics[r.key]; ok {
			printer.Printf(r.format, v)
		}
	}

	if q := doc.Quality; q != nil {
		printer.Printf("  Data quality: %d/100 (%d missing, %d high-MOE)\n",
			q.Score, q.Missing, q.HighMOE)
	}
	fmt.Printf("\nDocument: %s\n", cfg.Data.BaselineDocPath())
}
