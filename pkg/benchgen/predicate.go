package benchgen

import (
	"fmt"
	"strings"

	"github.com/XiaoConstantine/prodeval/pkg/catalog"
)

type predicate func(it catalog.Item) bool

// compile returns the predicate selecting items that satisfy attr=value.
func compile(t *catalog.Table, attr, value string) (predicate, error) {
	switch attr {
	case AttrBrand:
		return func(it catalog.Item) bool { return it.Brand == value }, nil
	case AttrCategory:
		// Category cells may list several categories.
		return func(it catalog.Item) bool { return strings.Contains(it.Category, value) }, nil
	case AttrCapacity:
		want := catalog.NormalizeCapacity(value)
		return func(it catalog.Item) bool { return it.Capacity == want }, nil
	case AttrOlfactory:
		if !t.HasGroup(value) {
			return nil, fmt.Errorf("%w: %q", catalog.ErrMissingColumn, value)
		}
		return func(it catalog.Item) bool { return it.InGroup(value) }, nil
	case AttrPrice:
		ceiling, err := ParsePriceThreshold(value)
		if err != nil {
			return nil, err
		}
		// NaN prices never compare less.
		return func(it catalog.Item) bool { return it.Price < ceiling }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, attr)
	}
}

func knownAttribute(attr string) bool {
	switch attr {
	case AttrBrand, AttrCategory, AttrCapacity, AttrOlfactory, AttrPrice:
		return true
	}
	return false
}

// postings lists, in row order, the table rows satisfying p.
func postings(t *catalog.Table, p predicate) []int {
	var rows []int
	for i, it := range t.Items() {
		if p(it) {
			rows = append(rows, i)
		}
	}
	return rows
}

// intersect merges two ascending row lists.
func intersect(a, b []int) []int {
	out := make([]int, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// Match evaluates a single query against the table and returns the matching
// ids in ascending order.
func Match(t *catalog.Table, q QuerySpec) ([]catalog.ItemID, error) {
	var rows []int
	for i, attr := range q.Keys() {
		p, err := compile(t, attr, q[attr])
		if err != nil {
			return nil, err
		}
		if i == 0 {
			rows = postings(t, p)
			continue
		}
		rows = intersect(rows, postings(t, p))
	}
	if len(q) == 0 {
		rows = make([]int, t.Len())
		for i := range rows {
			rows[i] = i
		}
	}
	return idsOf(t, rows), nil
}

func idsOf(t *catalog.Table, rows []int) []catalog.ItemID {
	items := t.Items()
	ids := make([]catalog.ItemID, len(rows))
	for i, r := range rows {
		ids[i] = items[r].ID
	}
	catalog.SortIDs(ids)
	return ids
}
