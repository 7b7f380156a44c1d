// Package benchgen enumerates attribute combinations over a catalog and keeps
// those with enough matching items as benchmark queries with known answers.
package benchgen

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Queryable attribute names.
const (
	AttrBrand     = "brand"
	AttrCategory  = "category"
	AttrCapacity  = "capacity"
	AttrOlfactory = "olfactory_category"
	AttrPrice     = "price"
)

var (
	// ErrMalformedThreshold is returned for price ceilings not of the form "<number>".
	ErrMalformedThreshold = errors.New("malformed price threshold")
	// ErrUnknownAttribute is returned for attribute names without a predicate.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrDuplicateAttribute is returned when a domain list names an attribute twice.
	ErrDuplicateAttribute = errors.New("duplicate attribute")
	// ErrInvalidSize is returned for combination sizes below one.
	ErrInvalidSize = errors.New("invalid combination size")
)

// QuerySpec selects one value for each of a set of distinct attributes.
type QuerySpec map[string]string

// Has reports whether the query constrains attribute key.
func (q QuerySpec) Has(key string) bool {
	_, ok := q[key]
	return ok
}

// Keys returns the constrained attributes, sorted.
func (q QuerySpec) Keys() []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the query with sorted keys, e.g. "brand=Acme, price=<30".
func (q QuerySpec) String() string {
	parts := make([]string, 0, len(q))
	for _, k := range q.Keys() {
		parts = append(parts, k+"="+q[k])
	}
	return strings.Join(parts, ", ")
}

// Clone returns an independent copy.
func (q QuerySpec) Clone() QuerySpec {
	out := make(QuerySpec, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

// ParsePriceThreshold parses a ceiling such as "<30" or "< 30".
func ParsePriceThreshold(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "<") {
		return 0, fmt.Errorf("%w: %q", ErrMalformedThreshold, s)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(trimmed[1:]), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedThreshold, s)
	}
	return f, nil
}
