package metrics

import (
	"strconv"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marylanddata/hanover-cli/internal/census"
)

func f64(v float64) *float64 { return &v }

// set builds an observation set; nil values model suppressed answers.
func set(vals map[string]*float64) census.ObservationSet {
	s := make(census.ObservationSet, len(vals))
	for code, v := range vals {
		raw := "-666666666"
		if v != nil {
			raw = strconv.FormatFloat(*v, 'f', -1, 64)
		}
		s[code] = census.Observation{Code: code, Raw: raw, Value: v}
	}
	return s
}

func fullACS() census.ObservationSet {
	return set(map[string]*float64{
		"B01003_001E": f64(28089),
		"B19013_001E": f64(125700),
		"B25077_001E": f64(492100),
		"B25064_001E": f64(2337),
		"B25001_001E": f64(8850),
		"B25003_002E": f64(5500),
		"B25003_003E": f64(2800),
		"B08301_001E": f64(15000),
		"B08301_010E": f64(750),
		"B08301_021E": f64(3300),
		"B15003_022E": f64(6000),
		"B15003_023E": f64(3200),
		"B15003_024E": f64(500),
		"B15003_025E": f64(300),
	})
}

func TestBaseline_GrowthRate(t *testing.T) {
	t.Parallel()

	m, methods, err := Baseline(fullACS(), set(map[string]*float64{"P1_001N": f64(26208)}))
	require.NoError(t, err)

	assert.InDelta(t, 7.1772, m["growth_rate"], 0.0001)
	assert.InDelta(t, 26208, m["population_baseline"], 1e-9)
	assert.InDelta(t, 28089, m["population"], 1e-9)
	assert.Contains(t, methods["growth_rate"], "2020 Census population")
}

func TestBaseline_VacancyRate(t *testing.T) {
	t.Parallel()

	m, _, err := Baseline(fullACS(), nil)
	require.NoError(t, err)

	assert.InDelta(t, 6.2147, m["vacancy_rate"], 0.0001)
	assert.InDelta(t, 8850, m["total_housing_units"], 1e-9)
	assert.InDelta(t, 8300, m["occupied_units"], 1e-9)
}

func TestBaseline_ZeroOccupancyStillComputes(t *testing.T) {
	t.Parallel()

	acs := set(map[string]*float64{
		"B25001_001E": f64(100),
		"B25003_002E": f64(0),
		"B25003_003E": f64(0),
	})

	m, _, err := Baseline(acs, nil)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, m["vacancy_rate"], 1e-9)
}

func TestBaseline_PriceToIncome(t *testing.T) {
	t.Parallel()

	m, _, err := Baseline(fullACS(), nil)
	require.NoError(t, err)

	assert.InDelta(t, 492100.0/125700.0, m["price_to_income_ratio"], 1e-9)
	assert.InDelta(t, 377100, m["affordable_home_price"], 1e-9)
	assert.InDelta(t, 2337, m["median_gross_rent"], 1e-9)
}

func TestBaseline_CommuteRates(t *testing.T) {
	t.Parallel()

	m, _, err := Baseline(fullACS(), nil)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, m["public_transit_rate"], 1e-9)
	assert.InDelta(t, 22.0, m["work_from_home_rate"], 1e-9)
}

func TestBaseline_CollegePlusDefaultsMissingCountsToZero(t *testing.T) {
	t.Parallel()

	acs := set(map[string]*float64{
		"B01003_001E": f64(28089),
		"B15003_022E": f64(4000),
		// master's/professional/doctorate suppressed
		"B15003_023E": nil,
	})

	m, _, err := Baseline(acs, nil)
	require.NoError(t, err)
	assert.InDelta(t, 4000.0/28089.0*100, m["college_plus_rate"], 1e-9)
}

func TestBaseline_OmitsUndefinedMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		acs    census.ObservationSet
		absent []string
	}{
		{
			name: "suppressed income blocks ratio but not rent",
			acs: set(map[string]*float64{
				"B01003_001E": f64(28089),
				"B19013_001E": nil,
				"B25077_001E": f64(492100),
				"B25064_001E": f64(2337),
			}),
			absent: []string{"price_to_income_ratio", "median_income", "median_home_value", "affordable_home_price"},
		},
		{
			name: "zero income is not a denominator",
			acs: set(map[string]*float64{
				"B01003_001E": f64(28089),
				"B19013_001E": f64(0),
				"B25077_001E": f64(492100),
			}),
			absent: []string{"price_to_income_ratio"},
		},
		{
			name: "zero workers blocks commute rates",
			acs: set(map[string]*float64{
				"B01003_001E": f64(28089),
				"B08301_001E": f64(0),
				"B08301_010E": f64(0),
				"B08301_021E": f64(0),
			}),
			absent: []string{"public_transit_rate", "work_from_home_rate", "total_workers"},
		},
		{
			name: "suppressed transit count blocks both rates",
			acs: set(map[string]*float64{
				"B01003_001E": f64(28089),
				"B08301_001E": f64(15000),
				"B08301_010E": nil,
				"B08301_021E": f64(3300),
			}),
			absent: []string{"public_transit_rate", "work_from_home_rate"},
		},
		{
			name: "missing housing side blocks vacancy",
			acs: set(map[string]*float64{
				"B01003_001E": f64(28089),
				"B25001_001E": f64(8850),
				"B25003_002E": nil,
				"B25003_003E": f64(2800),
			}),
			absent: []string{"vacancy_rate", "occupied_units", "total_housing_units"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, err := Baseline(tt.acs, nil)
			require.NoError(t, err)
			for _, key := range tt.absent {
				_, ok := m[key]
				assert.False(t, ok, "metric %s should be omitted", key)
			}
		})
	}
}

func TestBaseline_AllUnavailableFails(t *testing.T) {
	t.Parallel()

	acs := set(map[string]*float64{
		"B01003_001E": nil,
		"B19013_001E": nil,
	})

	_, _, err := Baseline(acs, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoMetrics))
}

func TestBaseline_Idempotent(t *testing.T) {
	t.Parallel()

	dec := set(map[string]*float64{"P1_001N": f64(26208)})

	first, _, err := Baseline(fullACS(), dec)
	require.NoError(t, err)
	second, _, err := Baseline(fullACS(), dec)
	require.NoError(t, err)

	// Bit-identical results for identical inputs
	assert.Equal(t, first, second)
}
