package metrics

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marylanddata/hanover-cli/internal/census"
)

// evenDistribution spreads households uniformly over the default brackets.
func evenDistribution(perBracket float64) IncomeDistribution {
	group := census.DefaultCatalog().Income
	d := IncomeDistribution{}
	for _, b := range group.Brackets {
		d.Brackets = append(d.Brackets, BracketCount{Bracket: b, Households: perBracket})
	}
	total := perBracket * float64(len(group.Brackets))
	d.ReportedTotal = f64(total)
	return d
}

func TestClassify_OwnershipProxyBeatsRent(t *testing.T) {
	t.Parallel()

	dist := evenDistribution(100)
	a, err := Classify(dist, f64(2337), f64(492100), AffordabilityOptions{})
	require.NoError(t, err)

	// 0.6% of 492,100 = 2,952.60/mo, which outbids the median rent.
	assert.Equal(t, CostBasisOwnership, a.CostBasis)
	assert.InDelta(t, 2952.60, a.MonthlyCost, 1e-9)
	assert.InDelta(t, 118104, a.RequiredIncome, 1e-9)

	// Bins with upper bound >= 118,104: 124999, 149999, 199999 and the
	// open-ended bracket represented at 300,000.
	assert.InDelta(t, 400, a.CanAfford, 1e-9)
	assert.InDelta(t, 1200, a.CannotAfford, 1e-9)
	assert.InDelta(t, 25.0, a.CanAffordPct, 1e-9)
	assert.InDelta(t, 75.0, a.CannotAffordPct, 1e-9)
}

func TestClassify_RentBeatsOwnershipProxy(t *testing.T) {
	t.Parallel()

	a, err := Classify(evenDistribution(10), f64(3000), f64(492100), AffordabilityOptions{})
	require.NoError(t, err)

	assert.Equal(t, CostBasisRent, a.CostBasis)
	assert.InDelta(t, 3000, a.MonthlyCost, 1e-9)
	assert.InDelta(t, 120000, a.RequiredIncome, 1e-9)
}

func TestClassify_SingleInputSuffices(t *testing.T) {
	t.Parallel()

	t.Run("rent only", func(t *testing.T) {
		t.Parallel()
		a, err := Classify(evenDistribution(10), f64(2337), nil, AffordabilityOptions{})
		require.NoError(t, err)
		assert.Equal(t, CostBasisRent, a.CostBasis)
		assert.InDelta(t, 93480, a.RequiredIncome, 1e-9)
		assert.Nil(t, a.MedianHomeValue)
	})

	t.Run("home value only", func(t *testing.T) {
		t.Parallel()
		a, err := Classify(evenDistribution(10), nil, f64(492100), AffordabilityOptions{})
		require.NoError(t, err)
		assert.Equal(t, CostBasisOwnership, a.CostBasis)
		assert.InDelta(t, 118104, a.RequiredIncome, 1e-9)
		assert.Nil(t, a.MedianRent)
	})
}

func TestClassify_NoHousingCost(t *testing.T) {
	t.Parallel()

	_, err := Classify(evenDistribution(10), nil, nil, AffordabilityOptions{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoHousingCost))

	_, err = Classify(evenDistribution(10), f64(0), f64(0), AffordabilityOptions{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoHousingCost))
}

func TestClassify_EverySideOfTheLine(t *testing.T) {
	t.Parallel()

	t.Run("trivially affordable", func(t *testing.T) {
		t.Parallel()
		a, err := Classify(evenDistribution(10), f64(1), nil, AffordabilityOptions{})
		require.NoError(t, err)
		assert.InDelta(t, a.TotalHouseholds, a.CanAfford, 1e-9)
		assert.InDelta(t, 0, a.CannotAfford, 1e-9)
	})

	t.Run("beyond the top bracket", func(t *testing.T) {
		t.Parallel()
		// Required income 400,000 exceeds even the top-bracket stand-in.
		a, err := Classify(evenDistribution(10), f64(10000), nil, AffordabilityOptions{})
		require.NoError(t, err)
		assert.InDelta(t, 0, a.CanAfford, 1e-9)
		assert.InDelta(t, a.TotalHouseholds, a.CannotAfford, 1e-9)
	})
}

func TestClassify_HouseholdsConserved(t *testing.T) {
	t.Parallel()

	for _, rent := range []float64{500, 1500, 2337, 3000, 5000, 9999} {
		a, err := Classify(evenDistribution(7), f64(rent), nil, AffordabilityOptions{})
		require.NoError(t, err)
		assert.InDelta(t, a.TotalHouseholds, a.CanAfford+a.CannotAfford, 1e-9)
	}
}

func TestClassify_RequiresReportedTotal(t *testing.T) {
	t.Parallel()

	dist := evenDistribution(10)
	dist.ReportedTotal = nil
	_, err := Classify(dist, f64(2000), nil, AffordabilityOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "household total")

	dist.ReportedTotal = f64(0)
	_, err = Classify(dist, f64(2000), nil, AffordabilityOptions{})
	require.Error(t, err)
}

func TestClassify_EmptyBracketsOmittedFromBreakdown(t *testing.T) {
	t.Parallel()

	dist := evenDistribution(10)
	dist.Brackets[0].Households = 0
	dist.ReportedTotal = f64(dist.Total())

	a, err := Classify(dist, f64(2000), nil, AffordabilityOptions{})
	require.NoError(t, err)

	assert.Len(t, a.Breakdown, len(dist.Brackets)-1)
	for _, bs := range a.Breakdown {
		assert.NotEqual(t, dist.Brackets[0].Bracket.Label, bs.Label)
	}
}

func TestClassify_MethodStatesAssumptions(t *testing.T) {
	t.Parallel()

	a, err := Classify(evenDistribution(10), f64(2337), f64(492100), AffordabilityOptions{})
	require.NoError(t, err)
	assert.Contains(t, a.Method, "30% income rule")
	assert.Contains(t, a.Method, "0.6% of home value")
	assert.Contains(t, a.Method, "$300000")

	a, err = Classify(evenDistribution(10), f64(2337), nil, AffordabilityOptions{TopBracketIncome: 250000})
	require.NoError(t, err)
	assert.Contains(t, a.Method, "$250000")
}

func TestClassify_TopBracketRepresentativeConfigurable(t *testing.T) {
	t.Parallel()

	// Required income of 118,104 with a depressed top-bracket stand-in of
	// 117,000 pushes the open bracket onto the cannot-afford side.
	a, err := Classify(evenDistribution(10), nil, f64(492100), AffordabilityOptions{TopBracketIncome: 117000})
	require.NoError(t, err)
	assert.InDelta(t, 30, a.CanAfford, 1e-9)
	assert.InDelta(t, 130, a.CannotAfford, 1e-9)
}

func TestClassify_MismatchedTotalStillClassifies(t *testing.T) {
	t.Parallel()

	dist := evenDistribution(10)
	dist.ReportedTotal = f64(dist.Total() + 5)

	a, err := Classify(dist, f64(2000), nil, AffordabilityOptions{})
	require.NoError(t, err)
	// Bin sum, not the reported figure, is the classification base.
	assert.InDelta(t, 160, a.TotalHouseholds, 1e-9)
}

func TestDistributionFromObservations(t *testing.T) {
	t.Parallel()

	group := census.DefaultCatalog().Income
	obs := set(map[string]*float64{
		group.Total.Code:       f64(100),
		group.Brackets[0].Code: f64(40),
		group.Brackets[5].Code: f64(60),
	})

	d := DistributionFromObservations(group, obs)
	require.Len(t, d.Brackets, len(group.Brackets))
	require.NotNil(t, d.ReportedTotal)
	assert.InDelta(t, 100, *d.ReportedTotal, 1e-9)
	assert.InDelta(t, 40, d.Brackets[0].Households, 1e-9)
	assert.InDelta(t, 0, d.Brackets[1].Households, 1e-9)
	assert.InDelta(t, 100, d.Total(), 1e-9)
}
