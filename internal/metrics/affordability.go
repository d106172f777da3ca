package metrics

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/marylanddata/hanover-cli/internal/census"
)

// ErrNoHousingCost means neither median gross rent nor median home value was
// available. Affordability analysis is impossible then; it is never
// approximated from other inputs.
var ErrNoHousingCost = eris.New("metrics: no rent or home value available")

// AffordabilityOptions carries the documented affordability heuristics.
type AffordabilityOptions struct {
	// IncomeShare is the share of gross income a household can spend on
	// housing. The published methodology uses the 30% rule.
	IncomeShare float64
	// OwnershipRate approximates monthly ownership cost (principal,
	// interest, taxes, insurance) as a share of home value. Default 0.6%.
	OwnershipRate float64
	// TopBracketIncome represents the open-ended "$200,000 or more" bin.
	TopBracketIncome float64
}

// WithDefaults fills unset fields with the published constants.
func (o AffordabilityOptions) WithDefaults() AffordabilityOptions {
	if o.IncomeShare <= 0 {
		o.IncomeShare = 0.30
	}
	if o.OwnershipRate <= 0 {
		o.OwnershipRate = 0.006
	}
	if o.TopBracketIncome <= 0 {
		o.TopBracketIncome = 300000
	}
	return o
}

// BracketCount pairs an income bin with its household count.
type BracketCount struct {
	Bracket    census.IncomeBracket `json:"bracket"`
	Households float64              `json:"households"`
}

// IncomeDistribution is table B19001 in typed form: household counts per bin,
// plus the total the API reported for cross-checking.
type IncomeDistribution struct {
	Brackets      []BracketCount
	ReportedTotal *float64
}

// DistributionFromObservations builds the distribution from a fetched
// observation set. Bins the API left out count zero households.
func DistributionFromObservations(group census.IncomeGroup, set census.ObservationSet) IncomeDistribution {
	d := IncomeDistribution{ReportedTotal: set.Value(group.Total.Code)}
	for _, b := range group.Brackets {
		d.Brackets = append(d.Brackets, BracketCount{Bracket: b, Households: set.ValueOrZero(b.Code)})
	}
	return d
}

// Total is the number of households in the distribution.
func (d IncomeDistribution) Total() float64 {
	var t float64
	for _, b := range d.Brackets {
		t += b.Households
	}
	return t
}

// BracketShare is one bin's slice of the affordability breakdown.
type BracketShare struct {
	Label      string  `json:"label"`
	Households float64 `json:"households"`
	Share      float64 `json:"percentage"`
}

// Affordability classifies the household income distribution against the
// income required to afford local housing.
type Affordability struct {
	MonthlyCost     float64        `json:"monthly_housing_cost"`
	CostBasis       string         `json:"cost_basis"`
	RequiredIncome  float64        `json:"required_income"`
	TotalHouseholds float64        `json:"total_households"`
	CanAfford       float64        `json:"can_afford"`
	CannotAfford    float64        `json:"cannot_afford"`
	CanAffordPct    float64        `json:"can_afford_percentage"`
	CannotAffordPct float64        `json:"cannot_afford_percentage"`
	Breakdown       []BracketShare `json:"income_breakdown,omitempty"`
	MedianRent      *float64       `json:"median_gross_rent_used,omitempty"`
	MedianHomeValue *float64       `json:"median_home_value_used,omitempty"`
	BaselinePath    string         `json:"baseline_metrics_path,omitempty"`
	Method          string         `json:"method"`
}

// Cost basis values.
const (
	CostBasisRent      = "rent"
	CostBasisOwnership = "ownership"
)

// MonthlyHousingCost picks the documented cost basis: the larger of median
// gross rent and the ownership proxy (OwnershipRate times home value).
// Returns 0, "" when neither input is usable.
func MonthlyHousingCost(rent, homeValue *float64, opts AffordabilityOptions) (float64, string) {
	opts = opts.WithDefaults()
	var monthly float64
	basis := ""
	if truthy(rent) {
		monthly = *rent
		basis = CostBasisRent
	}
	if truthy(homeValue) {
		ownership := *homeValue * opts.OwnershipRate
		if ownership > monthly {
			monthly = ownership
			basis = CostBasisOwnership
		}
	}
	return monthly, basis
}

// Classify runs the affordability analysis. Monthly housing cost is the
// larger of median gross rent and the ownership proxy; either input may be
// absent, both absent is an error. Every bracket lands on exactly one side of
// the required-income line, so CanAfford+CannotAfford always equals the
// distribution total.
func Classify(dist IncomeDistribution, rent, homeValue *float64, opts AffordabilityOptions) (*Affordability, error) {
	opts = opts.WithDefaults()

	monthly, basis := MonthlyHousingCost(rent, homeValue, opts)
	if basis == "" {
		return nil, ErrNoHousingCost
	}

	if dist.ReportedTotal == nil || *dist.ReportedTotal == 0 {
		return nil, eris.New("metrics: income distribution missing household total")
	}
	total := dist.Total()
	if total <= 0 {
		return nil, eris.New("metrics: income distribution has no households")
	}
	if *dist.ReportedTotal != total {
		zap.L().Warn("income bins do not sum to reported household total",
			zap.Float64("reported", *dist.ReportedTotal),
			zap.Float64("sum", total),
		)
	}

	a := &Affordability{
		MonthlyCost:     monthly,
		CostBasis:       basis,
		RequiredIncome:  monthly * 12 / opts.IncomeShare,
		TotalHouseholds: total,
		MedianRent:      rent,
		MedianHomeValue: homeValue,
		Method: fmt.Sprintf(
			"%.0f%% income rule using ACS median gross rent and/or median home value PITI heuristic; "+
				"ownership cost approximated as %.1f%% of home value per month; "+
				"open-ended top bracket represented at $%.0f",
			opts.IncomeShare*100, opts.OwnershipRate*100, opts.TopBracketIncome),
	}

	for _, bc := range dist.Brackets {
		rep := bc.Bracket.Upper
		if bc.Bracket.Open {
			rep = opts.TopBracketIncome
		}
		if rep >= a.RequiredIncome {
			a.CanAfford += bc.Households
		} else {
			a.CannotAfford += bc.Households
		}
		if bc.Households > 0 {
			a.Breakdown = append(a.Breakdown, BracketShare{
				Label:      bc.Bracket.Label,
				Households: bc.Households,
				Share:      bc.Households / total * 100,
			})
		}
	}
	a.CanAffordPct = a.CanAfford / total * 100
	a.CannotAffordPct = a.CannotAfford / total * 100

	return a, nil
}
