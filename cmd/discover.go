package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marylanddata/hanover-cli/internal/census"
	"github.com/marylanddata/hanover-cli/internal/discovery"
	"github.com/marylanddata/hanover-cli/internal/runlog"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Probe every ACS variable for data in the configured area",
	Long: `Fetch the ACS dataset's full variable index and probe every estimate
variable in batches, recording which ones actually answer for the configured
ZIP Code Tabulation Area. The result is saved as a raw artifact; failed
batches are skipped, not retried, so partial discovery still lands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "discover"))

		env, err := initCollect(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		entry, err := env.Runs.Start(ctx, "discover")
		if err != nil {
			return eris.Wrap(err, "discover: record run")
		}

		zcta, year := cfg.Census.ZCTA, cfg.Census.ACSYear
		log.Info("starting discovery", zap.String("zcta", zcta), zap.Int("acs_year", year))

		res, path, err := runDiscovery(ctx, env, zcta, year)
		var result *runlog.Result
		if err == nil {
			result = &runlog.Result{
				Artifacts: []string{path},
				Metrics: map[string]float64{
					"variables_tested":    float64(res.VariablesTested),
					"variables_with_data": float64(res.VariablesWithData),
					"failed_batches":      float64(res.FailedBatches),
				},
			}
		}
		closeRun(ctx, env.Runs, entry.ID, result, err)
		if err != nil {
			return eris.Wrap(err, "discover")
		}

		log.Info("discovery finished",
			zap.Int("tested", res.VariablesTested),
			zap.Int("with_data", res.VariablesWithData),
			zap.Int("failed_batches", res.FailedBatches),
			zap.Strings("sample", res.Sample(10)),
		)

		fmt.Println()
		printer.Printf("Discovery: %d of %d estimate variables carry data for ZCTA %s\n",
			res.VariablesWithData, res.VariablesTested, zcta)
		if res.FailedBatches > 0 {
			printer.Printf("Failed batches: %d (results are partial)\n", res.FailedBatches)
		}
		fmt.Printf("Artifact: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

// runDiscovery probes the dataset and archives the outcome. The artifact is
// the discovery result itself; its provenance fields (dataset, zcta, method)
// travel inside the document.
func runDiscovery(ctx context.Context, env *collectEnv, zcta string, year int) (*discovery.Result, string, error) {
	res, err := discovery.New(env.Client).Run(ctx, census.ACSDataset(year), zcta)
	if err != nil {
		return nil, "", err
	}

	payload, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, "", eris.Wrap(err, "discover: marshal result")
	}

	path, err := env.Raw.Save(payload, fmt.Sprintf("discovery_acs5_%d_zcta%s", year, zcta))
	if err != nil {
		return nil, "", err
	}
	return res, path, nil
}
