// Package discovery probes which variables actually carry data for a
// geography, with no hardcoded assumptions about what should exist.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/marylanddata/hanover-cli/internal/census"
)

// batchSize is how many variables one probe query carries. The API caps a
// single request at 50 variables.
const batchSize = 50

// Fetcher is the census surface discovery needs.
type Fetcher interface {
	Get(ctx context.Context, dataset string, vars []string, geo string) (*census.Table, error)
	Variables(ctx context.Context, dataset string) (map[string]census.VariableDef, error)
}

// Finding is one answered variable: the verbatim value (annotation codes
// included, the reader decides what is usable) and the index definition.
type Finding struct {
	Value      string `json:"value"`
	Definition string `json:"definition"`
}

// Result is a completed discovery run.
type Result struct {
	ZCTA              string             `json:"zcta"`
	Dataset           string             `json:"dataset"`
	VariablesTested   int                `json:"total_variables_tested"`
	VariablesWithData int                `json:"variables_with_data"`
	FailedBatches     int                `json:"failed_batches,omitempty"`
	Method            string             `json:"discovery_method"`
	Findings          map[string]Finding `json:"data"`
}

// Sample returns up to n findings in code order, one line each, for logging.
func (r *Result) Sample(n int) []string {
	codes := make([]string, 0, len(r.Findings))
	for code := range r.Findings {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	if len(codes) > n {
		codes = codes[:n]
	}
	out := make([]string, len(codes))
	for i, code := range codes {
		f := r.Findings[code]
		out[i] = fmt.Sprintf("%s=%s (%s)", code, f.Value, f.Definition)
	}
	return out
}

// Discoverer runs variable discovery against one dataset.
type Discoverer struct {
	client Fetcher
}

// New creates a Discoverer.
func New(client Fetcher) *Discoverer {
	return &Discoverer{client: client}
}

// Run fetches the dataset's variable index, filters it to estimate variables,
// and probes them in batches. A failed batch is logged and skipped; partial
// discovery is still useful. Only a failed index fetch or a canceled context
// aborts the run.
func (d *Discoverer) Run(ctx context.Context, dataset, zcta string) (*Result, error) {
	idx, err := d.client.Variables(ctx, dataset)
	if err != nil {
		return nil, err
	}

	codes := estimateCodes(idx)
	if len(codes) == 0 {
		return nil, eris.Errorf("discovery: %s index has no estimate variables", dataset)
	}
	geo := "zip code tabulation area:" + zcta

	res := &Result{
		ZCTA:            zcta,
		Dataset:         dataset,
		VariablesTested: len(codes),
		Method:          "probed every estimate variable in the dataset index",
		Findings:        make(map[string]Finding),
	}

	batches := (len(codes) + batchSize - 1) / batchSize
	for start := 0; start < len(codes); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "discovery: canceled")
		}

		end := start + batchSize
		if end > len(codes) {
			end = len(codes)
		}
		batch := codes[start:end]
		num := start/batchSize + 1

		table, err := d.client.Get(ctx, dataset, batch, geo)
		if err != nil {
			res.FailedBatches++
			zap.L().Warn("discovery batch failed",
				zap.Int("batch", num),
				zap.Int("of", batches),
				zap.Error(err),
			)
			continue
		}

		for code, obs := range table.Observations(nil) {
			res.Findings[code] = Finding{Value: obs.Raw, Definition: idx[code].Label}
		}
		zap.L().Info("discovery batch complete",
			zap.Int("batch", num),
			zap.Int("of", batches),
			zap.Int("answered", len(res.Findings)),
		)
	}

	res.VariablesWithData = len(res.Findings)
	return res, nil
}

// estimateCodes filters the index to estimate variables, sorted so batch
// composition is reproducible run to run.
func estimateCodes(idx map[string]census.VariableDef) []string {
	var out []string
	for code := range idx {
		if !strings.HasSuffix(code, "E") {
			continue
		}
		switch code {
		case "for", "in", "ucgid":
			continue
		}
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
