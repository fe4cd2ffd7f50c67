package domain

import "strings"

// FilterCounties returns the county-level records of a snapshot in their
// original relative order. A non-empty county restricts the result to
// records whose county name matches case-insensitively; callers are
// expected to normalize case upstream, the fold here is a safety net.
func FilterCounties(records []Record, county string) []Record {
	out := make([]Record, 0)
	for _, r := range records {
		if !r.IsCounty() {
			continue
		}
		if county != "" && !strings.EqualFold(*r.County, county) {
			continue
		}
		out = append(out, r)
	}
	return out
}
