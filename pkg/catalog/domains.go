package catalog

import "sort"

type valueCount struct {
	value string
	count int
}

func countBy(t *Table, field func(Item) string) []valueCount {
	counts := make(map[string]int)
	for _, it := range t.Items() {
		if v := field(it); v != "" {
			counts[v]++
		}
	}
	out := make([]valueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, valueCount{v, c})
	}
	// Frequency descending, value ascending for a stable, reproducible order.
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].value < out[j].value
	})
	return out
}

// BrandsWithMinSupport returns the brands carried by at least min items.
func BrandsWithMinSupport(t *Table, min int) []string {
	var out []string
	for _, vc := range countBy(t, func(it Item) string { return it.Brand }) {
		if vc.count >= min {
			out = append(out, vc.value)
		}
	}
	return out
}

// TopCapacities returns the k most frequent capacities.
func TopCapacities(t *Table, k int) []string {
	var out []string
	for i, vc := range countBy(t, func(it Item) string { return it.Capacity }) {
		if i >= k {
			break
		}
		out = append(out, vc.value)
	}
	return out
}
