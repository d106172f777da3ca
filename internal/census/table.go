package census

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Annotation codes the API substitutes for suppressed or unavailable values.
// They must never be treated as numbers.
var annotationCodes = map[string]bool{
	"-666666666": true,
	"-888888888": true,
	"-999999999": true,
}

// Table is one decoded API response. The API answers with a positional array
// of arrays, header row first; Body keeps the verbatim payload for archival.
type Table struct {
	Endpoint  string
	Dataset   string
	Variables []string
	Geography string
	Header    []string
	Rows      [][]string
	Body      []byte
}

// ParseTable decodes a raw API payload. Live fetches and archived artifacts
// go through the same decoder, so an audit re-reads a saved payload exactly
// the way the original fetch did.
func ParseTable(body []byte) (*Table, error) {
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, eris.Wrap(err, "census: decode response table")
	}
	if len(rows) < 2 {
		return nil, ErrShortResponse
	}
	return &Table{Header: rows[0], Rows: rows[1:], Body: body}, nil
}

// Observation is a single variable's value for the queried geography. Value
// is nil when the API answered with an annotation code or a non-numeric
// string; Raw always keeps what the API said.
type Observation struct {
	Code  string   `json:"code"`
	Label string   `json:"label,omitempty"`
	Raw   string   `json:"raw"`
	Value *float64 `json:"value"`
}

// ObservationSet indexes observations by variable code.
type ObservationSet map[string]Observation

// Value returns the numeric value for a code, or nil when the variable is
// absent or suppressed.
func (s ObservationSet) Value(code string) *float64 {
	if obs, ok := s[code]; ok {
		return obs.Value
	}
	return nil
}

// ValueOrZero treats an absent or suppressed variable as zero. Only use this
// where the methodology explicitly counts missing as zero.
func (s ObservationSet) ValueOrZero(code string) float64 {
	if v := s.Value(code); v != nil {
		return *v
	}
	return 0
}

// Observations converts the first data row into typed observations, labeled
// from the given code-to-label map when known. Geography echo columns are
// skipped. Small-area queries return exactly one data row; callers that query
// wildcards should walk Rows themselves.
func (t *Table) Observations(labels map[string]string) ObservationSet {
	set := make(ObservationSet, len(t.Header))
	if len(t.Rows) == 0 {
		return set
	}
	row := t.Rows[0]
	for i, code := range t.Header {
		if i >= len(row) || isGeoColumn(code) {
			continue
		}
		set[code] = Observation{
			Code:  code,
			Label: labels[code],
			Raw:   row[i],
			Value: ParseValue(row[i]),
		}
	}
	return set
}

// isGeoColumn reports whether a header entry echoes the `for` clause rather
// than naming a variable.
func isGeoColumn(code string) bool {
	switch code {
	case "zip code tabulation area", "state", "county", "place", "us", "ucgid":
		return true
	}
	return false
}

// ParseValue converts one response cell. Annotation codes and unparseable
// strings yield nil rather than a number.
func ParseValue(raw string) *float64 {
	if raw == "" || annotationCodes[raw] {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// MOECode returns the margin-of-error twin of an estimate variable
// (B01003_001E becomes B01003_001M), or "" when the code is not an ACS
// estimate.
func MOECode(code string) string {
	if strings.HasSuffix(code, "E") && strings.Contains(code, "_") {
		return code[:len(code)-1] + "M"
	}
	return ""
}
