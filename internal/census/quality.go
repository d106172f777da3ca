package census

import "fmt"

// highMOEPct flags estimates whose margin of error exceeds 30% of the
// estimate itself.
const highMOEPct = 30.0

// Quality summarizes how trustworthy a fetched batch is: how many estimates
// came back suppressed and how many carry an outsized margin of error.
type Quality struct {
	Valid     bool     `json:"valid"`
	Variables int      `json:"variables"`
	Missing   int      `json:"missing_values"`
	HighMOE   int      `json:"high_moe_count"`
	Score     int      `json:"quality_score"`
	Issues    []string `json:"issues,omitempty"`
}

// AssessQuality scores an observation set against the estimate codes it was
// supposed to contain. Margin-of-error twins are looked up in the same set
// when they were fetched alongside. Score starts at 100 and loses 10 per
// missing estimate and 5 per high-MOE estimate.
func AssessQuality(set ObservationSet, estimateCodes []string) Quality {
	q := Quality{Variables: len(estimateCodes)}

	for _, code := range estimateCodes {
		est := set.Value(code)
		if est == nil {
			q.Missing++
			continue
		}
		moeCode := MOECode(code)
		if moeCode == "" || *est == 0 {
			continue
		}
		moe := set.Value(moeCode)
		if moe == nil {
			continue
		}
		pct := *moe / *est * 100
		if pct > highMOEPct {
			q.HighMOE++
			q.Issues = append(q.Issues, fmt.Sprintf("High margin of error for %s: %.1f%%", code, pct))
		}
	}

	q.Score = 100 - q.Missing*10 - q.HighMOE*5
	if q.Score < 0 {
		q.Score = 0
	}
	q.Valid = len(q.Issues) < 3
	return q
}
