package domain

// Generalize rolls county-level records up into one summed record per
// province and carries every other record through untouched. Output order
// is deterministic: pass-through records first, in their original relative
// order, then one record per province in the order each province was first
// seen. Invalid counts poison the province sums per Count.Add.
func Generalize(records []Record) []Record {
	out := make([]Record, 0, len(records))
	totals := make(map[string]Record)
	// Go maps do not preserve insertion order; first-seen order is tracked
	// separately so repeated runs produce identical snapshots.
	var provinces []string

	for _, r := range records {
		if !r.IsCounty() {
			r.Province = normalizeProvince(r.Province)
			out = append(out, r)
			continue
		}

		key := ""
		if r.Province != nil {
			key = *r.Province
		}
		acc, ok := totals[key]
		if !ok {
			r.County = nil
			totals[key] = r
			provinces = append(provinces, key)
			continue
		}
		acc.Stats = acc.Stats.Add(r.Stats)
		totals[key] = acc
	}

	for _, key := range provinces {
		out = append(out, totals[key])
	}
	return out
}

func normalizeProvince(p *string) *string {
	if p != nil && *p == "" {
		return nil
	}
	return p
}
