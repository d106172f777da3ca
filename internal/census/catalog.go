package census

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Variable pairs an API code with its display label.
type Variable struct {
	Code  string `yaml:"code" json:"code"`
	Label string `yaml:"label" json:"label"`
}

// IncomeBracket is one household-income bin from table B19001. Upper is the
// bin's top dollar, used as the representative income when classifying
// affordability. The open-ended top bin has Open set and takes its
// representative income from configuration instead.
type IncomeBracket struct {
	Code  string  `yaml:"code" json:"code"`
	Label string  `yaml:"label" json:"label"`
	Upper float64 `yaml:"upper" json:"upper"`
	Open  bool    `yaml:"open,omitempty" json:"open,omitempty"`
}

// IncomeGroup is table B19001: the household total plus sixteen income bins.
type IncomeGroup struct {
	Total    Variable        `yaml:"total" json:"total"`
	Brackets []IncomeBracket `yaml:"brackets" json:"brackets"`
}

// OccupationGroup is table C24010: total employed plus major occupation
// groups.
type OccupationGroup struct {
	Total  Variable   `yaml:"total" json:"total"`
	Groups []Variable `yaml:"groups" json:"groups"`
}

// Catalog names the variable sets the pipeline fetches. The built-in values
// mirror the published methodology; a YAML file can override them for other
// study areas without a rebuild.
type Catalog struct {
	Baseline   []Variable      `yaml:"baseline" json:"baseline"`
	Decennial  []Variable      `yaml:"decennial" json:"decennial"`
	Income     IncomeGroup     `yaml:"income" json:"income"`
	Occupation OccupationGroup `yaml:"occupation" json:"occupation"`
}

// DefaultCatalog returns the built-in variable sets.
func DefaultCatalog() Catalog {
	return Catalog{
		Baseline: []Variable{
			{Code: "B01003_001E", Label: "Total Population"},
			{Code: "B19013_001E", Label: "Median Household Income"},
			{Code: "B25077_001E", Label: "Median Home Value"},
			{Code: "B25064_001E", Label: "Median Gross Rent"},
			{Code: "B25001_001E", Label: "Total Housing Units"},
			{Code: "B25003_002E", Label: "Owner Occupied Housing"},
			{Code: "B25003_003E", Label: "Renter Occupied Housing"},
			{Code: "B25004_001E", Label: "Vacancy Status Total"},
			{Code: "B08301_001E", Label: "Total Workers 16+"},
			{Code: "B08301_010E", Label: "Public Transportation to Work"},
			{Code: "B08301_021E", Label: "Worked from Home"},
			{Code: "B08303_001E", Label: "Travel Time to Work Total"},
			{Code: "B15003_022E", Label: "Bachelor's Degree"},
			{Code: "B15003_023E", Label: "Master's Degree"},
			{Code: "B15003_024E", Label: "Professional Degree"},
			{Code: "B15003_025E", Label: "Doctorate Degree"},
		},
		Decennial: []Variable{
			{Code: "P1_001N", Label: "Total Population (2020 Census)"},
		},
		Income: IncomeGroup{
			Total: Variable{Code: "B19001_001E", Label: "Total Households"},
			Brackets: []IncomeBracket{
				{Code: "B19001_002E", Label: "Less than $10,000", Upper: 10000},
				{Code: "B19001_003E", Label: "$10,000 to $14,999", Upper: 14999},
				{Code: "B19001_004E", Label: "$15,000 to $19,999", Upper: 19999},
				{Code: "B19001_005E", Label: "$20,000 to $24,999", Upper: 24999},
				{Code: "B19001_006E", Label: "$25,000 to $29,999", Upper: 29999},
				{Code: "B19001_007E", Label: "$30,000 to $34,999", Upper: 34999},
				{Code: "B19001_008E", Label: "$35,000 to $39,999", Upper: 39999},
				{Code: "B19001_009E", Label: "$40,000 to $44,999", Upper: 44999},
				{Code: "B19001_010E", Label: "$45,000 to $49,999", Upper: 49999},
				{Code: "B19001_011E", Label: "$50,000 to $59,999", Upper: 59999},
				{Code: "B19001_012E", Label: "$60,000 to $74,999", Upper: 74999},
				{Code: "B19001_013E", Label: "$75,000 to $99,999", Upper: 99999},
				{Code: "B19001_014E", Label: "$100,000 to $124,999", Upper: 124999},
				{Code: "B19001_015E", Label: "$125,000 to $149,999", Upper: 149999},
				{Code: "B19001_016E", Label: "$150,000 to $199,999", Upper: 199999},
				{Code: "B19001_017E", Label: "$200,000 or more", Open: true},
			},
		},
		Occupation: OccupationGroup{
			Total: Variable{Code: "C24010_001E", Label: "Total Employed"},
			Groups: []Variable{
				{Code: "C24010_002E", Label: "Management, business, science, and arts"},
				{Code: "C24010_003E", Label: "Service occupations"},
				{Code: "C24010_004E", Label: "Sales and office occupations"},
				{Code: "C24010_005E", Label: "Natural resources, construction, maintenance"},
				{Code: "C24010_006E", Label: "Production, transportation, material moving"},
			},
		},
	}
}

// LoadCatalog reads a catalog override from a YAML file. Empty path returns
// the defaults.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, eris.Wrapf(err, "census: read catalog %s", path)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, eris.Wrapf(err, "census: parse catalog %s", path)
	}

	if len(cat.Baseline) == 0 || len(cat.Income.Brackets) == 0 {
		return Catalog{}, eris.Errorf("census: catalog %s missing baseline or income variables", path)
	}
	return cat, nil
}

// Codes extracts the API codes from a variable list, in order.
func Codes(vars []Variable) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.Code
	}
	return out
}

// Labels builds a code-to-label map from a variable list.
func Labels(vars []Variable) map[string]string {
	out := make(map[string]string, len(vars))
	for _, v := range vars {
		out[v.Code] = v.Label
	}
	return out
}

// Codes returns the group's API codes: the total first, then each bracket.
func (g IncomeGroup) Codes() []string {
	out := []string{g.Total.Code}
	for _, b := range g.Brackets {
		out = append(out, b.Code)
	}
	return out
}

// Labels builds the group's code-to-label map.
func (g IncomeGroup) Labels() map[string]string {
	out := map[string]string{g.Total.Code: g.Total.Label}
	for _, b := range g.Brackets {
		out[b.Code] = b.Label
	}
	return out
}

// Codes returns the group's API codes: the total first, then each occupation.
func (g OccupationGroup) Codes() []string {
	return append([]string{g.Total.Code}, Codes(g.Groups)...)
}

// Labels builds the group's code-to-label map.
func (g OccupationGroup) Labels() map[string]string {
	out := Labels(g.Groups)
	out[g.Total.Code] = g.Total.Label
	return out
}

// WithMOE interleaves each estimate code with its margin-of-error twin.
func WithMOE(codes []string) []string {
	out := make([]string, 0, len(codes)*2)
	for _, c := range codes {
		out = append(out, c)
		if m := MOECode(c); m != "" {
			out = append(out, m)
		}
	}
	return out
}
