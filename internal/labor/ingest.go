package labor

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Ingestor turns saved releases into typed documents under the processed
// directory.
type Ingestor struct {
	clock clockwork.Clock
}

// NewIngestor creates an Ingestor on the real clock.
func NewIngestor() *Ingestor {
	return &Ingestor{clock: clockwork.NewRealClock()}
}

// NewIngestorWithClock creates an Ingestor with an injected clock.
func NewIngestorWithClock(clock clockwork.Clock) *Ingestor {
	return &Ingestor{clock: clock}
}

// Ingest reads the saved release at rawPath, parses it for the period, and
// writes the typed document to outPath. A non-empty sourceURL replaces the
// period-derived release URL, for months that were archived from a different
// address. A missing source or an unparseable phrase aborts with no partial
// output.
func (i *Ingestor) Ingest(rawPath, outPath string, p Period, sourceURL string) (*Release, error) {
	data, err := os.ReadFile(rawPath)
	if err != nil {
		return nil, eris.Wrapf(err, "labor: read source %s", rawPath)
	}

	rel, err := Parse(string(data), p)
	if err != nil {
		return nil, err
	}
	if sourceURL != "" {
		rel.SourceURL = sourceURL
	}
	rel.RetrievedAt = i.clock.Now().UTC()

	out, err := json.MarshalIndent(rel, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "labor: marshal release")
	}

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "labor: create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".release-*")
	if err != nil {
		return nil, eris.Wrap(err, "labor: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return nil, eris.Wrapf(err, "labor: write %s", outPath)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, eris.Wrapf(err, "labor: close %s", outPath)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		_ = os.Remove(tmpName)
		return nil, eris.Wrapf(err, "labor: finalize %s", outPath)
	}

	zap.L().Info("labor release ingested",
		zap.String("period", rel.Period),
		zap.String("source", rawPath),
		zap.String("output", outPath),
		zap.Int("gainers", len(rel.TopGainers)),
		zap.Int("losers", len(rel.TopLosers)),
	)
	return rel, nil
}
