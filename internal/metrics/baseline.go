package metrics

import (
	"github.com/rotisserie/eris"

	"github.com/marylanddata/hanover-cli/internal/census"
)

// ErrNoMetrics means nothing could be derived from the available inputs. An
// empty metrics document is never written; the run fails instead.
var ErrNoMetrics = eris.New("metrics: no metrics derivable from inputs")

// Baseline derives the community baseline metrics from an ACS observation set
// and an optional decennial set. A metric whose inputs are missing or
// suppressed is omitted, never zero-filled or marked null. The methods map
// documents the formula or heuristic behind each derived value.
func Baseline(acs, decennial census.ObservationSet) (map[string]float64, map[string]string, error) {
	m := make(map[string]float64)
	methods := make(map[string]string)

	// Population and growth
	pop := acs.Value("B01003_001E")
	if truthy(pop) {
		m["population"] = *pop
	}
	if base := decennial.Value("P1_001N"); truthy(pop) && truthy(base) {
		p, b := *pop, *base
		m["population_baseline"] = b
		m["growth_rate"] = (p - b) / b * 100
		methods["growth_rate"] = "(ACS population - 2020 Census population) / 2020 Census population * 100"
	}

	// Housing stock and vacancy. Zero owner or renter counts are legitimate;
	// only a missing side or a zero housing total blocks the rate.
	total := acs.Value("B25001_001E")
	owner := acs.Value("B25003_002E")
	renter := acs.Value("B25003_003E")
	if total != nil && *total > 0 && owner != nil && renter != nil {
		occupied := *owner + *renter
		m["total_housing_units"] = *total
		m["occupied_units"] = occupied
		m["vacancy_rate"] = (*total - occupied) / *total * 100
		methods["vacancy_rate"] = "(total housing units - (owner occupied + renter occupied)) / total * 100"
	}

	// Income and home prices
	income := acs.Value("B19013_001E")
	home := acs.Value("B25077_001E")
	if truthy(income) && truthy(home) {
		i, h := *income, *home
		m["median_income"] = i
		m["median_home_value"] = h
		m["price_to_income_ratio"] = h / i
		m["affordable_home_price"] = i * 3
		methods["price_to_income_ratio"] = "median home value / median household income"
		methods["affordable_home_price"] = "median household income * 3 (conventional affordability heuristic)"
	}
	if rent := acs.Value("B25064_001E"); truthy(rent) {
		m["median_gross_rent"] = *rent
	}

	// Commute patterns. Rates need a positive worker base and both counts
	// answered; a genuine zero transit count still yields a 0% rate.
	workers := acs.Value("B08301_001E")
	transit := acs.Value("B08301_010E")
	wfh := acs.Value("B08301_021E")
	if truthy(workers) && transit != nil && wfh != nil {
		w := *workers
		m["total_workers"] = w
		m["public_transit_rate"] = *transit / w * 100
		m["work_from_home_rate"] = *wfh / w * 100
		methods["public_transit_rate"] = "workers commuting by public transportation / total workers * 100"
		methods["work_from_home_rate"] = "workers working from home / total workers * 100"
	}

	// Degree attainment. Missing sub-counts are treated as zero by the
	// published methodology.
	if truthy(pop) {
		degrees := acs.ValueOrZero("B15003_022E") +
			acs.ValueOrZero("B15003_023E") +
			acs.ValueOrZero("B15003_024E") +
			acs.ValueOrZero("B15003_025E")
		m["college_plus_rate"] = degrees / *pop * 100
		methods["college_plus_rate"] = "bachelor's + master's + professional + doctorate holders / total population * 100"
	}

	if len(m) == 0 {
		return nil, nil, ErrNoMetrics
	}
	return m, methods, nil
}

// truthy reports a value that is present and nonzero. The methodology treats
// zero medians and zero totals as unusable denominators.
func truthy(v *float64) bool { return v != nil && *v != 0 }
