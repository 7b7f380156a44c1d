package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Columns maps the logical fields of an Item to the physical column names of a source.
type Columns struct {
	ID          string   `mapstructure:"id"`
	Brand       string   `mapstructure:"brand"`
	Category    string   `mapstructure:"category"`
	Capacity    string   `mapstructure:"capacity"`
	Price       string   `mapstructure:"price"`
	Permalink   string   `mapstructure:"permalink"`
	Name        string   `mapstructure:"name"`
	Description string   `mapstructure:"description"`
	Groups      []string `mapstructure:"groups"`
}

// DefaultColumns matches the layout of the exported product spreadsheet.
func DefaultColumns() Columns {
	groups := make([]string, len(OlfactoryGroups))
	copy(groups, OlfactoryGroups)
	return Columns{
		ID:          "ID",
		Brand:       "brand",
		Category:    "Categorie",
		Capacity:    "Capacita",
		Price:       "prezzo",
		Permalink:   "permalink",
		Name:        "name",
		Description: "description",
		Groups:      groups,
	}
}

func (c Columns) required() []string {
	req := []string{c.ID, c.Brand, c.Category, c.Capacity, c.Price}
	return append(req, c.Groups...)
}

// rowReader turns header-indexed rows into Items.
type rowReader struct {
	cols  Columns
	index map[string]int
}

func newRowReader(header []string, cols Columns) (*rowReader, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, name := range cols.required() {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	return &rowReader{cols: cols, index: index}, nil
}

func (r *rowReader) cell(row []string, name string) string {
	i, ok := r.index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (r *rowReader) item(row []string) (Item, error) {
	id, err := ParseID(r.cell(row, r.cols.ID))
	if err != nil {
		return Item{}, err
	}
	price, err := parsePrice(r.cell(row, r.cols.Price))
	if err != nil {
		return Item{}, fmt.Errorf("item %s: %w", id, err)
	}

	it := Item{
		ID:          id,
		Name:        r.cell(row, r.cols.Name),
		Brand:       r.cell(row, r.cols.Brand),
		Category:    r.cell(row, r.cols.Category),
		Capacity:    NormalizeCapacity(r.cell(row, r.cols.Capacity)),
		Price:       price,
		Permalink:   r.cell(row, r.cols.Permalink),
		Description: r.cell(row, r.cols.Description),
		Groups:      make(map[string]bool, len(r.cols.Groups)),
	}
	for _, g := range r.cols.Groups {
		set, err := parseIndicator(r.cell(row, g))
		if err != nil {
			return Item{}, fmt.Errorf("item %s column %q: %w", id, g, err)
		}
		if set {
			it.Groups[g] = true
		}
	}
	return it, nil
}

// parsePrice accepts "12.5", "12,50" and "". An empty cell yields NaN, which
// never satisfies a price ceiling.
func parsePrice(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: price %q", ErrInvalidValue, s)
	}
	return f, nil
}

func parseIndicator(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "1.0", "true":
		return true, nil
	case "", "0", "0.0", "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: indicator %q", ErrInvalidValue, s)
}
