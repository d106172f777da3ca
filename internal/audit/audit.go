// Package audit verifies that persisted metric documents are traceable to raw
// artifacts and that their derived claims still agree with the raw values.
// All checks are read-only; problems become report findings, never mutations.
package audit

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/marylanddata/hanover-cli/internal/census"
	"github.com/marylanddata/hanover-cli/internal/metrics"
	"github.com/marylanddata/hanover-cli/internal/rawstore"
)

// tolerance for re-derived floating-point metrics.
const tolerance = 1e-6

// Variable codes the cross-checks recompute from. These mirror the default
// collection catalog; a document collected under a custom catalog that drops
// one of them simply skips that cross-check.
const (
	varPopulation = "B01003_001E"
	varIncome     = "B19013_001E"
	varHomeValue  = "B25077_001E"
	varTotalUnits = "B25001_001E"
	varOwnerOcc   = "B25003_002E"
	varRenterOcc  = "B25003_003E"
)

// Check is one named PASS/FAIL line in the report.
type Check struct {
	Name   string
	Pass   bool
	Detail string
}

// Section groups the checks for one audited area. Advisory sections inform
// the reader but never flip the exit code.
type Section struct {
	Title    string
	Advisory bool
	Checks   []Check
	Notes    []string
}

func (s *Section) add(pass bool, name, detail string) {
	s.Checks = append(s.Checks, Check{Name: name, Pass: pass, Detail: detail})
}

func (s *Section) note(format string, args ...any) {
	s.Notes = append(s.Notes, fmt.Sprintf(format, args...))
}

// OK reports whether every check in the section passed.
func (s *Section) OK() bool {
	for _, c := range s.Checks {
		if !c.Pass {
			return false
		}
	}
	return true
}

// Report is the complete audit outcome.
type Report struct {
	GeneratedAt time.Time
	Sections    []*Section
	Scan        *rawstore.ScanResult
}

// OK is true when every non-advisory check passed. Layout findings
// (misplaced or duplicate artifacts) are advisory and do not affect it.
func (r *Report) OK() bool {
	for _, s := range r.Sections {
		if !s.Advisory && !s.OK() {
			return false
		}
	}
	return true
}

// Options locates everything the audit reads.
type Options struct {
	// Root resolves the relative storage paths recorded in provenance.
	Root string
	// BaselinePath and IncomePath are the derived metric documents.
	BaselinePath string
	IncomePath   string
	// CanonicalRaw is the raw-artifacts root; LegacyRaw lists locations
	// artifacts should have been moved out of.
	CanonicalRaw string
	LegacyRaw    []string
	// Affordability supplies the heuristics for re-deriving costs.
	Affordability metrics.AffordabilityOptions
}

// Auditor runs the provenance audit.
type Auditor struct {
	opts  Options
	clock clockwork.Clock
}

// New creates an Auditor resolving relative paths against opts.Root.
func New(opts Options) *Auditor {
	return NewWithClock(opts, clockwork.NewRealClock())
}

// NewWithClock creates an Auditor with an injected clock.
func NewWithClock(opts Options, clock clockwork.Clock) *Auditor {
	if opts.Root == "" {
		opts.Root = "."
	}
	opts.Affordability = opts.Affordability.WithDefaults()
	return &Auditor{opts: opts, clock: clock}
}

// Run executes every check. It never returns an error: findings accumulate
// into the report and severity travels through Report.OK.
func (a *Auditor) Run() *Report {
	r := &Report{GeneratedAt: a.clock.Now().UTC()}
	r.Sections = append(r.Sections, a.auditBaseline())
	r.Sections = append(r.Sections, a.auditIncome())

	layout, scan := a.auditLayout()
	r.Sections = append(r.Sections, layout)
	r.Scan = scan
	return r
}

func (a *Auditor) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.opts.Root, filepath.FromSlash(p))
}

func (a *Auditor) auditBaseline() *Section {
	s := &Section{Title: fmt.Sprintf("Baseline metrics (%s)", filepath.ToSlash(a.opts.BaselinePath))}

	doc, err := metrics.LoadDocument(a.resolve(a.opts.BaselinePath))
	if err != nil {
		s.add(false, "document exists and parses", err.Error())
		return s
	}
	s.add(true, "document exists and parses", "")

	raw := a.verifySources(s, doc)
	a.checkPopulation(s, doc, raw)
	a.checkPriceToIncome(s, doc, raw)
	a.checkVacancy(s, doc, raw)
	return s
}

// verifySources walks every source block: the referenced artifact must exist,
// its filename stamp must agree with the recorded retrieved_at, and it must
// still decode as an API table. Decoded observations merge into one set for
// the metric cross-checks.
func (a *Auditor) verifySources(s *Section, doc *metrics.Document) census.ObservationSet {
	merged := make(census.ObservationSet)

	names := make([]string, 0, len(doc.Sources))
	for name := range doc.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		s.add(false, "document references raw sources", "no source blocks recorded")
		return merged
	}

	for _, name := range names {
		prov := doc.Sources[name].Provenance
		path := a.resolve(prov.StoragePath)

		data, err := os.ReadFile(path)
		if err != nil {
			s.add(false, fmt.Sprintf("source %s: raw artifact readable", name), prov.StoragePath)
			continue
		}
		s.add(true, fmt.Sprintf("source %s: raw artifact readable", name), prov.StoragePath)

		stamp, err := rawstore.TimestampFromPath(path)
		switch {
		case err != nil:
			s.add(false, fmt.Sprintf("source %s: filename carries a timestamp", name), err.Error())
		case !stamp.Equal(prov.RetrievedAt):
			s.add(false, fmt.Sprintf("source %s: retrieved_at matches filename stamp", name),
				fmt.Sprintf("file says %s, provenance says %s",
					stamp.Format(time.RFC3339), prov.RetrievedAt.Format(time.RFC3339)))
		default:
			s.add(true, fmt.Sprintf("source %s: retrieved_at matches filename stamp", name), "")
		}

		table, err := census.ParseTable(data)
		if err != nil {
			s.add(false, fmt.Sprintf("source %s: artifact decodes as an API table", name), err.Error())
			continue
		}
		for code, obs := range table.Observations(nil) {
			merged[code] = obs
		}
	}
	return merged
}

func (a *Auditor) checkPopulation(s *Section, doc *metrics.Document, raw census.ObservationSet) {
	metric, ok := doc.Metrics["population"]
	pop := raw.Value(varPopulation)
	if !ok || pop == nil {
		s.note("population cross-check skipped (missing values)")
		return
	}
	s.add(math.Abs(*pop-metric) < tolerance,
		"population matches raw "+varPopulation,
		fmt.Sprintf("raw %.0f vs stored %.0f", *pop, metric))
}

func (a *Auditor) checkPriceToIncome(s *Section, doc *metrics.Document, raw census.ObservationSet) {
	metric, ok := doc.Metrics["price_to_income_ratio"]
	income := raw.Value(varIncome)
	home := raw.Value(varHomeValue)
	if !ok || income == nil || home == nil || *income == 0 {
		s.note("price_to_income_ratio cross-check skipped (missing values)")
		return
	}
	hv, inc := *home, *income
	recomputed := hv / inc
	s.add(math.Abs(recomputed-metric) < tolerance,
		"price_to_income_ratio consistent with raw home value / income",
		fmt.Sprintf("recomputed %.6f vs stored %.6f", recomputed, metric))
}

func (a *Auditor) checkVacancy(s *Section, doc *metrics.Document, raw census.ObservationSet) {
	metric, ok := doc.Metrics["vacancy_rate"]
	total := raw.Value(varTotalUnits)
	owner := raw.Value(varOwnerOcc)
	renter := raw.Value(varRenterOcc)
	if !ok || total == nil || owner == nil || renter == nil || *total == 0 {
		s.note("vacancy_rate cross-check skipped (missing values)")
		return
	}
	tv, ov, rv := *total, *owner, *renter
	recomputed := (tv - (ov + rv)) / tv * 100
	s.add(math.Abs(recomputed-metric) < tolerance,
		"vacancy_rate consistent with raw unit counts",
		fmt.Sprintf("recomputed %.6f vs stored %.6f", recomputed, metric))
}

func (a *Auditor) auditIncome() *Section {
	s := &Section{Title: fmt.Sprintf("Income & employment (%s)", filepath.ToSlash(a.opts.IncomePath))}

	doc, err := metrics.LoadDocument(a.resolve(a.opts.IncomePath))
	if err != nil {
		s.add(false, "document exists and parses", err.Error())
		return s
	}
	s.add(true, "document exists and parses", "")

	a.verifySources(s, doc)

	aff := doc.Affordability
	s.add(aff != nil, "affordability analysis present", "")
	if aff == nil {
		return s
	}

	if aff.BaselinePath != "" {
		_, err := os.Stat(a.resolve(aff.BaselinePath))
		s.add(err == nil, "affordability references an existing baseline document",
			filepath.ToSlash(aff.BaselinePath))
	} else {
		s.note("affordability does not reference a baseline document")
	}

	s.add(math.Abs(aff.CanAfford+aff.CannotAfford-aff.TotalHouseholds) < tolerance,
		"can_afford + cannot_afford equals total households",
		fmt.Sprintf("%.0f + %.0f vs %.0f", aff.CanAfford, aff.CannotAfford, aff.TotalHouseholds))

	monthly, basis := metrics.MonthlyHousingCost(aff.MedianRent, aff.MedianHomeValue, a.opts.Affordability)
	if basis == "" {
		s.note("monthly cost re-derivation skipped (no recorded rent or home value)")
	} else {
		s.add(math.Abs(monthly-aff.MonthlyCost) < tolerance && basis == aff.CostBasis,
			"monthly_housing_cost re-derives from recorded inputs",
			fmt.Sprintf("recomputed %.2f (%s) vs stored %.2f (%s)", monthly, basis, aff.MonthlyCost, aff.CostBasis))
	}

	required := aff.MonthlyCost * 12 / a.opts.Affordability.IncomeShare
	s.add(math.Abs(required-aff.RequiredIncome) < tolerance,
		"required_income re-derives from monthly cost",
		fmt.Sprintf("recomputed %.2f vs stored %.2f", required, aff.RequiredIncome))
	return s
}

func (a *Auditor) auditLayout() (*Section, *rawstore.ScanResult) {
	s := &Section{Title: "Raw file layout", Advisory: true}

	legacy := make([]string, 0, len(a.opts.LegacyRaw))
	for _, root := range a.opts.LegacyRaw {
		legacy = append(legacy, a.resolve(root))
	}

	scan, err := rawstore.Scan(a.resolve(a.opts.CanonicalRaw), legacy)
	if err != nil {
		s.note("raw layout scan failed: %v", err)
		return s, nil
	}

	s.note("raw files discovered: %d", len(scan.Files))
	if len(scan.Misplaced) == 0 {
		s.note("no misplaced raw files detected")
	}
	for _, path := range scan.Misplaced {
		s.note("misplaced: %s", a.rel(path))
	}
	if len(scan.Duplicates) == 0 {
		s.note("no duplicate raw artifacts detected")
	}
	for _, group := range scan.Duplicates {
		rels := make([]string, len(group))
		for i, path := range group {
			rels[i] = a.rel(path)
		}
		s.note("duplicate content: %s", strings.Join(rels, " == "))
	}
	return s, scan
}

// rel shortens a path for the report when it sits under the audit root.
func (a *Auditor) rel(path string) string {
	if r, err := filepath.Rel(a.opts.Root, path); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(path)
}
