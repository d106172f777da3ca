package metrics

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/marylanddata/hanover-cli/internal/census"
	"github.com/marylanddata/hanover-cli/internal/rawstore"
)

// Document names.
const (
	DocBaseline = "baseline"
	DocIncome   = "income_employment"
)

// SourceBlock pairs a provenance record with the typed observations taken
// from its artifact.
type SourceBlock struct {
	Provenance   rawstore.Provenance   `json:"provenance"`
	Observations census.ObservationSet `json:"observations"`
}

// Document is a consumer-facing derived-metrics artifact. Everything a reader
// needs to trace a number back to a verbatim API payload travels with it.
type Document struct {
	Name          string                 `json:"name"`
	Geography     string                 `json:"geography"`
	GeneratedAt   time.Time              `json:"generated_at"`
	Sources       map[string]SourceBlock `json:"sources"`
	Metrics       map[string]float64     `json:"metrics"`
	Methods       map[string]string      `json:"methods,omitempty"`
	Quality       *census.Quality        `json:"quality,omitempty"`
	Occupations   []OccupationShare      `json:"occupations,omitempty"`
	Affordability *Affordability         `json:"affordability,omitempty"`
}

// WriteDocument writes the document as indented JSON via a temp file and a
// rename, so the prior version survives any mid-write failure. Non-finite
// metric values are rejected; omission upstream is the contract for missing
// data.
func WriteDocument(path string, doc *Document) error {
	for k, v := range doc.Metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return eris.Errorf("metrics: metric %s is not finite", k)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "metrics: create %s", dir)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "metrics: marshal %s", doc.Name)
	}

	tmp, err := os.CreateTemp(dir, ".doc-*")
	if err != nil {
		return eris.Wrap(err, "metrics: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "metrics: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "metrics: close %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "metrics: finalize %s", path)
	}

	zap.L().Info("document written",
		zap.String("path", path),
		zap.String("name", doc.Name),
		zap.Int("metrics", len(doc.Metrics)),
	)
	return nil
}

// LoadDocument reads a document back.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "metrics: read document %s", path)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "metrics: parse document %s", path)
	}
	return &doc, nil
}
