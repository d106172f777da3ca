// Package labor parses Maryland Department of Labor monthly employment news
// releases saved verbatim as Markdown. Every required phrase must be located
// or parsing fails outright, so downstream consumers never see invented
// numbers.
package labor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Period identifies the month a release covers.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, eris.Wrapf(err, "labor: period %q (want YYYY-MM)", s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Slug is the release's site naming convention, e.g. mlraug2025.
func (p Period) Slug() string {
	return fmt.Sprintf("mlr%s%d", strings.ToLower(p.Month.String()[:3]), p.Year)
}

// SourceURL is the release's canonical page on labor.maryland.gov.
func (p Period) SourceURL() string {
	return fmt.Sprintf("https://www.labor.maryland.gov/whatsnews/%s.shtml", p.Slug())
}

// SectorChange is one sector's month-over-month employment change. Gains
// carry the figure as published; losses carry an explicit minus sign.
type SectorChange struct {
	Sector     string `json:"sector"`
	JobsChange int    `json:"jobs_change"`
}

// Highlights are the release's headline figures, as published.
type Highlights struct {
	JobsChangeTotal          int     `json:"jobs_change_total"`
	FederalJobsChange        int     `json:"federal_jobs_change"`
	FederalJobsChangeYTD     int     `json:"federal_jobs_change_ytd"`
	UnemploymentRate         float64 `json:"unemployment_rate"`
	NationalUnemploymentRate float64 `json:"national_unemployment_rate"`
}

// Release is a fully parsed monthly employment release.
type Release struct {
	SourceURL   string         `json:"source_url"`
	RetrievedAt time.Time      `json:"retrieved_at"`
	Period      string         `json:"period"`
	Highlights  Highlights     `json:"highlights"`
	TopGainers  []SectorChange `json:"top_gainers"`
	TopLosers   []SectorChange `json:"top_losers"`
}

var sectorEntry = regexp.MustCompile(`(.+?)\s*\(([\-\+]?[0-9,]+)\s+jobs?\)`)

// Parse extracts the release figures for the given period. Any phrase that
// cannot be located is a hard error.
func Parse(text string, p Period) (*Release, error) {
	month := p.Month.String()

	total, err := extractInt(text,
		`(?i)workforce (?:decreased|declined) by\s+([\-\+]?[0-9,]+) jobs`,
		"total jobs change")
	if err != nil {
		return nil, err
	}

	federal, err := extractInt(text,
		`(?i)loss of (?:another\s*)?([\-\+]?[0-9,]+) federal jobs in `+month,
		"federal jobs change")
	if err != nil {
		return nil, err
	}

	federalYTD, err := extractInt(text,
		fmt.Sprintf(`(?i)lost\s+([\-\+]?[0-9,]+) federal jobs since January\s*%d`, p.Year),
		"federal jobs change since January")
	if err != nil {
		return nil, err
	}

	// The release phrases the state rate as a move from last month's figure;
	// the current rate is the second number.
	state, err := extractFloat(text,
		`(?i)unemployment rate increased from\s*([0-9]\.[0-9])\s*percent to\s*([0-9]\.[0-9])\s*percent`,
		2, "state unemployment rate")
	if err != nil {
		return nil, err
	}

	national, err := extractFloat(text,
		`(?i)national rate \((?:[0-9]\.[0-9]) percent vs ([0-9]\.[0-9]) percent\)`,
		1, "national unemployment rate")
	if err != nil {
		return nil, err
	}

	gainers, err := sectorChanges(text,
		"The five sectors with the largest employment gains in "+month)
	if err != nil {
		return nil, err
	}
	losers, err := sectorChanges(text,
		"The five sectors with the largest estimated employment losses in "+month)
	if err != nil {
		return nil, err
	}

	return &Release{
		SourceURL: p.SourceURL(),
		Period:    p.String(),
		Highlights: Highlights{
			JobsChangeTotal:          total,
			FederalJobsChange:        federal,
			FederalJobsChangeYTD:     federalYTD,
			UnemploymentRate:         state,
			NationalUnemploymentRate: national,
		},
		TopGainers: gainers,
		TopLosers:  losers,
	}, nil
}

func extractInt(text, pattern, what string) (int, error) {
	m := regexp.MustCompile(pattern).FindStringSubmatch(text)
	if m == nil {
		return 0, eris.Errorf("labor: release does not state the %s", what)
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, eris.Wrapf(err, "labor: parse %s %q", what, m[1])
	}
	return n, nil
}

func extractFloat(text, pattern string, group int, what string) (float64, error) {
	m := regexp.MustCompile(pattern).FindStringSubmatch(text)
	if m == nil {
		return 0, eris.Errorf("labor: release does not state the %s", what)
	}
	v, err := strconv.ParseFloat(m[group], 64)
	if err != nil {
		return 0, eris.Wrapf(err, "labor: parse %s %q", what, m[group])
	}
	return v, nil
}

// sectorChanges pulls the semicolon-separated "Sector (N jobs)" list that
// follows a header phrase.
func sectorChanges(text, header string) ([]SectorChange, error) {
	re := regexp.MustCompile(`(?is)` + regexp.QuoteMeta(header) + `\s*were:\s*(.+?)\.`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil, eris.Errorf("labor: release has no list under %q", header)
	}

	var out []SectorChange
	for _, part := range strings.Split(m[1], ";") {
		sm := sectorEntry.FindStringSubmatch(strings.TrimSpace(part))
		if sm == nil {
			continue
		}
		n, err := strconv.Atoi(strings.ReplaceAll(sm[2], ",", ""))
		if err != nil {
			return nil, eris.Wrapf(err, "labor: parse sector change %q", sm[2])
		}
		out = append(out, SectorChange{Sector: strings.TrimSpace(sm[1]), JobsChange: n})
	}
	if len(out) == 0 {
		return nil, eris.Errorf("labor: no sector entries under %q", header)
	}
	return out, nil
}
