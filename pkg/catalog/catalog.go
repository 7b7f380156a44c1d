// Package catalog holds the read-only product table the benchmark is derived from.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	// ErrMissingColumn is returned when a required catalog column is absent.
	ErrMissingColumn = errors.New("missing required catalog column")
	// ErrDuplicateID is returned when two rows share an identifier.
	ErrDuplicateID = errors.New("duplicate item id")
	// ErrInvalidValue is returned when a cell cannot be parsed for its column.
	ErrInvalidValue = errors.New("invalid catalog value")
)

// OlfactoryGroups is the closed vocabulary of topic groups, one indicator column each.
var OlfactoryGroups = []string{
	"Agrumato", "Ambrato", "Aromatico", "Chypre", "Cuoio", "Dolce", "Floreale", "Fruttato",
	"Gourmand", "Legnoso", "Muschiato", "Senza Profumo", "Speziato Leggero", "Aromatico Legnoso",
	"Floreale Fruttato", "Floreale Legnoso", "Agrumato Legnoso", "Agrumato Aromatico",
	"Agrumato Fruttato", "Agrumato Floreale", "Floreale Muschiato", "Ambrato Floreale",
	"Agrumato Muschiato",
}

// Item is one product row.
type Item struct {
	ID          ItemID
	Name        string
	Brand       string
	Category    string // may list several categories
	Capacity    string // normalized "<number> ml" when recognizable
	Price       float64
	Permalink   string
	Description string
	Groups      map[string]bool
}

// InGroup reports whether the item's indicator for group is set.
func (it Item) InGroup(group string) bool {
	return it.Groups[group]
}

// Table is an immutable, id-addressable collection of items.
// It is safe for concurrent readers.
type Table struct {
	items  []Item
	byID   map[ItemID]int
	groups map[string]bool
}

// NewTable builds a table. groups lists the indicator columns the source
// provided; every item must have a unique id.
func NewTable(items []Item, groups []string) (*Table, error) {
	t := &Table{
		items:  make([]Item, len(items)),
		byID:   make(map[ItemID]int, len(items)),
		groups: make(map[string]bool, len(groups)),
	}
	copy(t.items, items)
	for _, g := range groups {
		t.groups[g] = true
	}
	for i, it := range t.items {
		if it.ID == "" {
			return nil, fmt.Errorf("row %d: %w: empty", i, ErrInvalidID)
		}
		if _, dup := t.byID[it.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, it.ID)
		}
		t.byID[it.ID] = i
	}
	return t, nil
}

// Len returns the number of items.
func (t *Table) Len() int { return len(t.items) }

// Items returns the rows in source order. Callers must not modify them.
func (t *Table) Items() []Item { return t.items }

// Item looks up a row by id.
func (t *Table) Item(id ItemID) (Item, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Item{}, false
	}
	return t.items[i], true
}

// HasGroup reports whether the table carries an indicator column for group.
func (t *Table) HasGroup(group string) bool { return t.groups[group] }

// Groups returns the indicator columns, sorted.
func (t *Table) Groups() []string {
	out := make([]string, 0, len(t.groups))
	for g := range t.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

var capacityPattern = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*ml$`)

// NormalizeCapacity rewrites "50ML", "50 ml", " 50 Ml " to "50 ml".
// Values that do not look like a millilitre quantity are only trimmed.
func NormalizeCapacity(s string) string {
	s = strings.TrimSpace(s)
	m := capacityPattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return strings.Replace(m[1], ",", ".", 1) + " ml"
}
