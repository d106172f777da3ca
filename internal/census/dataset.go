package census

import "fmt"

// ACSDataset is the API path of an ACS 5-year vintage, e.g. "2023/acs/acs5".
func ACSDataset(year int) string {
	return fmt.Sprintf("%d/acs/acs5", year)
}

// DecennialDataset is the API path of a decennial PL vintage, e.g.
// "2020/dec/pl".
func DecennialDataset(year int) string {
	return fmt.Sprintf("%d/dec/pl", year)
}

// ZCTAGeography is the `for` clause selecting one ZIP Code Tabulation Area.
func ZCTAGeography(zcta string) string {
	return "zip code tabulation area:" + zcta
}
