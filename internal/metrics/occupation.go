package metrics

import "github.com/marylanddata/hanover-cli/internal/census"

// OccupationShare is one major occupation group's share of total employment.
type OccupationShare struct {
	Code     string  `json:"code"`
	Label    string  `json:"label"`
	Employed float64 `json:"employed"`
	Share    float64 `json:"percentage"`
}

// OccupationShares summarizes table C24010: each occupation group's share of
// total employment. Nil when the employment total is missing or zero; groups
// the API suppressed are left out.
func OccupationShares(group census.OccupationGroup, set census.ObservationSet) []OccupationShare {
	total := set.Value(group.Total.Code)
	if !truthy(total) {
		return nil
	}

	var out []OccupationShare
	for _, v := range group.Groups {
		n := set.Value(v.Code)
		if !truthy(n) {
			continue
		}
		out = append(out, OccupationShare{
			Code:     v.Code,
			Label:    v.Label,
			Employed: *n,
			Share:    *n / *total * 100,
		})
	}
	return out
}
