package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marylanddata/hanover-cli/internal/census"
	"github.com/marylanddata/hanover-cli/internal/metrics"
	"github.com/marylanddata/hanover-cli/internal/runlog"
)

var collectIncomeCmd = &cobra.Command{
	Use:   "income",
	Short: "Collect income distribution, occupations, and affordability",
	Long: `Fetch the B19001 household income distribution and the C24010 major
occupation groups, archive both raw API responses, classify housing
affordability against the baseline housing costs, and write the income &
employment document.

Run 'collect baseline' first: the affordability classification takes median
gross rent and median home value from the baseline document.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "collect.income"))

		env, err := initCollect(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		entry, err := env.Runs.Start(ctx, "collect income")
		if err != nil {
			return eris.Wrap(err, "collect income: record run")
		}

		zcta, year := collectTarget()
		log.Info("starting income collection", zap.String("zcta", zcta), zap.Int("acs_year", year))

		doc, result, err := collectIncome(ctx, env, zcta, year)
		closeRun(ctx, env.Runs, entry.ID, result, err)
		if err != nil {
			return eris.Wrap(err, "collect income")
		}

		printIncomeSummary(doc)
		return nil
	},
}

func init() {
	collectCmd.AddCommand(collectIncomeCmd)
}

// collectIncome fetches the income and occupation tables and derives the
// income & employment document. Affordability is the document's reason to
// exist, so a missing cost basis fails the command rather than producing a
// document without it.
func collectIncome(ctx context.Context, env *collectEnv, zcta string, year int) (*metrics.Document, *runlog.Result, error) {
	geo := census.ZCTAGeography(zcta)

	incTable, incProv, err := fetchAndArchive(ctx, env,
		census.ACSDataset(year), year, env.Catalog.Income.Codes(), geo,
		fmt.Sprintf("acs5_%d_B19001_zcta%s", year, zcta))
	if err != nil {
		return nil, nil, err
	}

	occTable, occProv, err := fetchAndArchive(ctx, env,
		census.ACSDataset(year), year, env.Catalog.Occupation.Codes(), geo,
		fmt.Sprintf("acs5_%d_C24010_zcta%s", year, zcta))
	if err != nil {
		return nil, nil, err
	}

	incObs := incTable.Observations(env.Catalog.Income.Labels())
	occObs := occTable.Observations(env.Catalog.Occupation.Labels())

	dist := metrics.DistributionFromObservations(env.Catalog.Income, incObs)
	rent, home, baselinePath := baselineHousingCosts()

	aff, err := metrics.Classify(dist, rent, home, affordabilityOptions())
	if err != nil {
		if eris.Is(err, metrics.ErrNoHousingCost) {
			return nil, nil, eris.Wrap(err, "no housing cost basis; run 'collect baseline' first")
		}
		return nil, nil, err
	}
	aff.BaselinePath = baselinePath

	derived := map[string]float64{"total_households": dist.Total()}
	methods := map[string]string{"total_households": "sum of B19001 income bracket household counts"}
	if total := occObs.Value(env.Catalog.Occupation.Total.Code); total != nil {
		derived["total_employed"] = *total
	}

	doc := &metrics.Document{
		Name:        metrics.DocIncome,
		Geography:   "ZCTA " + zcta,
		GeneratedAt: time.Now().UTC(),
		Sources: map[string]metrics.SourceBlock{
			"census_acs5_b19001": {Provenance: incProv, Observations: incObs},
			"census_acs5_c24010": {Provenance: occProv, Observations: occObs},
		},
		Metrics:       derived,
		Methods:       methods,
		Occupations:   metrics.OccupationShares(env.Catalog.Occupation, occObs),
		Affordability: aff,
	}
	if err := metrics.WriteDocument(cfg.Data.IncomeDocPath(), doc); err != nil {
		return nil, nil, err
	}

	result := &runlog.Result{
		Artifacts: []string{incProv.StoragePath, occProv.StoragePath, cfg.Data.IncomeDocPath()},
		Metrics: map[string]float64{
			"total_households":         aff.TotalHouseholds,
			"cannot_afford_percentage": aff.CannotAffordPct,
		},
	}
	return doc, result, nil
}

// baselineHousingCosts reads median gross rent and median home value from the
// baseline document. A missing or unreadable baseline leaves both nil; the
// affordability classifier decides whether that is fatal.
func baselineHousingCosts() (rent, home *float64, path string) {
	path = cfg.Data.BaselineDocPath()
	baseline, err := metrics.LoadDocument(path)
	if err != nil {
		zap.L().Warn("baseline document unavailable", zap.String("path", path), zap.Error(err))
		return nil, nil, ""
	}
	if v, ok := baseline.Metrics["median_gross_rent"]; ok {
		rent = &v
	}
	if v, ok := baseline.Metrics["median_home_value"]; ok {
		home = &v
	}
	return rent, home, filepath.ToSlash(path)
}

func printIncomeSummary(doc *metrics.Document) {
	fmt.Println()
	fmt.Printf("Income & employment (%s)\n", doc.Geography)

	if len(doc.Occupations) > 0 {
		fmt.Println("\nEmployment by occupation:")
		for _, o := range doc.Occupations {
			printer.Printf("  %s: %.0f (%.1f%%)\n", o.Label, o.Employed, o.Share)
		}
	}

	if aff := doc.Affordability; aff != nil {
		fmt.Println("\nHousing affordability:")
		printer.Printf("  Monthly housing cost (%s basis): $%.0f\n", aff.CostBasis, aff.MonthlyCost)
		printer.Printf("  Required income: $%.0f\n", aff.RequiredIncome)
		printer.Printf("  Can afford: %.1f%% of %.0f households\n", aff.CanAffordPct, aff.TotalHouseholds)
		printer.Printf("  Cannot afford: %.1f%%\n", aff.CannotAffordPct)

		if len(aff.Breakdown) > 0 {
			fmt.Println("\nIncome distribution:")
			for _, b := range aff.Breakdown {
				printer.Printf("  %s: %.0f households (%.1f%%)\n", b.Label, b.Households, b.Share)
			}
		}
	}
	fmt.Printf("\nDocument: %s\n", cfg.Data.IncomeDocPath())
}
