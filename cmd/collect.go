package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/marylanddata/hanover-cli/internal/census"
	"github.com/marylanddata/hanover-cli/internal/metrics"
	"github.com/marylanddata/hanover-cli/internal/rawstore"
	"github.com/marylanddata/hanover-cli/internal/runlog"
)

// printer formats human summaries with thousands separators.
var printer = message.NewPrinter(language.English)

var (
	collectZCTA string
	collectYear int
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch raw Census data and derive metric documents",
	Long: `Fetch data from the Census Bureau API, archive every verbatim response
as a timestamped raw artifact, and write derived metric documents that embed
full provenance.`,
}

func init() {
	collectCmd.PersistentFlags().StringVar(&collectZCTA, "zcta", "", "override the configured ZIP Code Tabulation Area")
	collectCmd.PersistentFlags().IntVar(&collectYear, "year", 0, "override the configured ACS vintage")
	rootCmd.AddCommand(collectCmd)
}

// collectTarget resolves the geography and ACS vintage for this invocation.
func collectTarget() (zcta string, year int) {
	zcta, year = cfg.Census.ZCTA, cfg.Census.ACSYear
	if collectZCTA != "" {
		zcta = collectZCTA
	}
	if collectYear != 0 {
		year = collectYear
	}
	return zcta, year
}

// collectEnv holds everything a collection command needs: the API client, the
// raw artifact store, the variable catalog, and the run history.
type collectEnv struct {
	Client  *census.Client
	Raw     *rawstore.Store
	Catalog census.Catalog
	Runs    runlog.Store
}

// Close releases the run log. Raw artifacts and documents are plain files and
// hold nothing open.
func (ce *collectEnv) Close() {
	if ce.Runs != nil {
		_ = ce.Runs.Close()
	}
}

// initCollect builds the collection environment. A run log that cannot be
// opened is fatal here, before any fetch runs; later run log problems only
// warn.
func initCollect(ctx context.Context) (*collectEnv, error) {
	cat, err := census.LoadCatalog(cfg.Census.Catalog)
	if err != nil {
		return nil, err
	}

	runs, err := openRunLog(ctx)
	if err != nil {
		return nil, err
	}

	client := census.NewClient(census.Options{
		BaseURL:   cfg.Census.BaseURL,
		APIKey:    cfg.Census.APIKey,
		UserAgent: cfg.Census.UserAgent,
		Timeout:   time.Duration(cfg.Census.TimeoutSecs) * time.Second,
		RateLimit: cfg.Census.RateLimit,
	})

	return &collectEnv{
		Client:  client,
		Raw:     rawstore.NewStore(cfg.Data.RawCensusDir()),
		Catalog: cat,
		Runs:    runs,
	}, nil
}

// openRunLog opens the configured run history backend and ensures its schema.
func openRunLog(ctx context.Context) (runlog.Store, error) {
	var (
		store runlog.Store
		err   error
	)
	switch cfg.RunLog.Driver {
	case "postgres":
		if cfg.RunLog.DatabaseURL == "" {
			return nil, eris.New("runlog: postgres driver needs runlog.database_url")
		}
		store, err = runlog.NewPostgres(ctx, cfg.RunLog.DatabaseURL)
	default:
		if dir := filepath.Dir(cfg.RunLog.Path); dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, eris.Wrapf(mkErr, "runlog: create %s", dir)
			}
		}
		store, err = runlog.NewSQLite(cfg.RunLog.Path)
	}
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// closeRun records how a collection run ended. Recording problems are logged,
// never returned: the collection itself already succeeded or failed on its
// own terms.
func closeRun(ctx context.Context, runs runlog.Store, id string, result *runlog.Result, runErr error) {
	if runErr != nil {
		if err := runs.Fail(ctx, id, runErr.Error()); err != nil {
			zap.L().Warn("could not mark run failed", zap.String("id", id), zap.Error(err))
		}
		return
	}
	if err := runs.Complete(ctx, id, result); err != nil {
		zap.L().Warn("could not mark run complete", zap.String("id", id), zap.Error(err))
	}
}

// affordabilityOptions lifts the configured heuristics into the metrics types.
func affordabilityOptions() metrics.AffordabilityOptions {
	return metrics.AffordabilityOptions{
		IncomeShare:      cfg.Affordability.IncomeShare,
		OwnershipRate:    cfg.Affordability.OwnershipRate,
		TopBracketIncome: cfg.Affordability.TopBracketIncome,
	}
}

// fetchAndArchive performs one API fetch, persists the verbatim payload as a
// raw artifact, and projects the artifact's provenance. Any failure aborts
// the calling command; nothing is retried.
func fetchAndArchive(ctx context.Context, env *collectEnv, dataset string, year int, vars []string, geo, label string) (*census.Table, rawstore.Provenance, error) {
	table, err := env.Client.Get(ctx, dataset, vars, geo)
	if err != nil {
		return nil, rawstore.Provenance{}, err
	}

	path, err := env.Raw.Save(table.Body, label)
	if err != nil {
		return nil, rawstore.Provenance{}, err
	}

	prov, err := rawstore.BuildProvenance(table.Endpoint, year, vars, geo, path)
	if err != nil {
		return nil, rawstore.Provenance{}, err
	}
	return table, prov, nil
}
