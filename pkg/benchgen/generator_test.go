package benchgen

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/prodeval/internal/logger"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
)

// brandTable builds 100 items: ids 1-30 brand X, 31-40 brand Y, 41-100 brand Z.
// Odd ids cost 10, even ids 50. Ids up to 50 are in the Floreale group.
func brandTable(t *testing.T) *catalog.Table {
	t.Helper()
	items := make([]catalog.Item, 0, 100)
	for i := 1; i <= 100; i++ {
		brand := "Z"
		switch {
		case i <= 30:
			brand = "X"
		case i <= 40:
			brand = "Y"
		}
		price := 50.0
		if i%2 == 1 {
			price = 10
		}
		items = append(items, catalog.Item{
			ID:       catalog.ItemID(strconv.Itoa(i)),
			Brand:    brand,
			Category: "Fragranze Donna, Idee Regalo",
			Capacity: "50 ml",
			Price:    price,
			Groups:   map[string]bool{"Floreale": i <= 50},
		})
	}
	table, err := catalog.NewTable(items, []string{"Floreale"})
	require.NoError(t, err)
	return table
}

func idRange(from, to, step int) []catalog.ItemID {
	var out []catalog.ItemID
	for i := from; i <= to; i += step {
		out = append(out, catalog.ItemID(strconv.Itoa(i)))
	}
	return out
}

func TestGenerateSingleAttribute(t *testing.T) {
	var rejected []Rejection
	g, err := New(brandTable(t), []Domain{
		{Attribute: AttrBrand, Values: []string{"X", "Y", "Z"}},
	}, Options{
		MinSupport: 20,
		Logger:     logger.NewTestLogger(t),
		RejectHook: func(r Rejection) { rejected = append(rejected, r) },
	})
	require.NoError(t, err)

	entries, err := g.Generate(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, QuerySpec{AttrBrand: "X"}, entries[0].Query)
	assert.Equal(t, idRange(1, 30, 1), entries[0].GroundTruth)
	assert.Equal(t, QuerySpec{AttrBrand: "Z"}, entries[1].Query)
	assert.Len(t, entries[1].GroundTruth, 60)

	require.Len(t, rejected, 1)
	assert.Equal(t, QuerySpec{AttrBrand: "Y"}, rejected[0].Query)
	assert.Equal(t, 10, rejected[0].Support)
	assert.Equal(t, 20, rejected[0].MinSupport)
}

func TestGenerateIntersectsAttributes(t *testing.T) {
	g, err := New(brandTable(t), []Domain{
		{Attribute: AttrBrand, Values: []string{"X", "Y"}},
		{Attribute: AttrCategory, Values: []string{"Fragranze Donna", "Fragranze Uomo"}},
		{Attribute: AttrPrice, Values: []string{"<30", "<100"}},
	}, Options{MinSupport: 10})
	require.NoError(t, err)

	entries, err := g.Generate(context.Background(), 2)
	require.NoError(t, err)

	got := make(map[string][]catalog.ItemID, len(entries))
	for _, e := range entries {
		got[e.Query.String()] = e.GroundTruth
	}
	assert.Equal(t, map[string][]catalog.ItemID{
		"brand=X, category=Fragranze Donna":    idRange(1, 30, 1),
		"brand=Y, category=Fragranze Donna":    idRange(31, 40, 1),
		"brand=X, price=<30":                   idRange(1, 29, 2),
		"brand=X, price=<100":                  idRange(1, 30, 1),
		"brand=Y, price=<100":                  idRange(31, 40, 1),
		"category=Fragranze Donna, price=<30":  idRange(1, 99, 2),
		"category=Fragranze Donna, price=<100": idRange(1, 100, 1),
	}, got)

	// Subsets in domain order, values in domain order.
	var order []string
	for _, e := range entries {
		order = append(order, e.Query.String())
	}
	assert.Equal(t, []string{
		"brand=X, category=Fragranze Donna",
		"brand=Y, category=Fragranze Donna",
		"brand=X, price=<30",
		"brand=X, price=<100",
		"brand=Y, price=<100",
		"category=Fragranze Donna, price=<30",
		"category=Fragranze Donna, price=<100",
	}, order)
}

func TestGenerateNeverEmitsBelowSupport(t *testing.T) {
	table := brandTable(t)
	domains := []Domain{
		{Attribute: AttrBrand, Values: []string{"X", "Y", "Z"}},
		{Attribute: AttrCapacity, Values: []string{"50ML", "100 ml"}},
		{Attribute: AttrOlfactory, Values: []string{"Floreale"}},
		{Attribute: AttrPrice, Values: []string{"<20", "<60"}},
	}
	for _, s := range []int{1, 15, 20, 31, 101} {
		g, err := New(table, domains, Options{MinSupport: s})
		require.NoError(t, err)
		all, err := g.GenerateAll(context.Background(), []int{1, 2, 3, 4})
		require.NoError(t, err)
		for n, entries := range all {
			for _, e := range entries {
				assert.GreaterOrEqual(t, len(e.GroundTruth), s, "size %d query %s", n, e.Query)
				assert.Len(t, e.Query, n)
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	domains := []Domain{
		{Attribute: AttrBrand, Values: []string{"Z", "X"}},
		{Attribute: AttrOlfactory, Values: []string{"Floreale"}},
		{Attribute: AttrPrice, Values: []string{"<20", "<60"}},
	}
	run := func() []byte {
		g, err := New(brandTable(t), domains, Options{MinSupport: 5})
		require.NoError(t, err)
		entries, err := g.Generate(context.Background(), 2)
		require.NoError(t, err)
		data, err := json.Marshal(entries)
		require.NoError(t, err)
		return data
	}
	assert.Equal(t, run(), run())
}

func TestGeneratePriceCeiling(t *testing.T) {
	items := []catalog.Item{
		{ID: "1", Price: 10},
		{ID: "2", Price: 20},
		{ID: "3", Price: 40},
	}
	table, err := catalog.NewTable(items, nil)
	require.NoError(t, err)

	g, err := New(table, []Domain{{Attribute: AttrPrice, Values: []string{"<30"}}}, Options{MinSupport: 1})
	require.NoError(t, err)
	entries, err := g.Generate(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []catalog.ItemID{"1", "2"}, entries[0].GroundTruth)

	ids, err := Match(table, QuerySpec{AttrPrice: "< 30"})
	require.NoError(t, err)
	assert.Equal(t, []catalog.ItemID{"1", "2"}, ids)
}

func TestGenerateEmptyDomain(t *testing.T) {
	g, err := New(brandTable(t), []Domain{
		{Attribute: AttrBrand, Values: []string{"X"}},
		{Attribute: AttrCategory},
	}, Options{})
	require.NoError(t, err)

	entries, err := g.Generate(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = g.Generate(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewConfigurationErrors(t *testing.T) {
	table := brandTable(t)
	tests := []struct {
		name    string
		domains []Domain
		want    error
	}{
		{
			name:    "malformed threshold",
			domains: []Domain{{Attribute: AttrPrice, Values: []string{"<20", "cheap"}}},
			want:    ErrMalformedThreshold,
		},
		{
			name:    "missing group column",
			domains: []Domain{{Attribute: AttrOlfactory, Values: []string{"Agrumato"}}},
			want:    catalog.ErrMissingColumn,
		},
		{
			name:    "unknown attribute",
			domains: []Domain{{Attribute: "colour", Values: []string{"red"}}},
			want:    ErrUnknownAttribute,
		},
		{
			name:    "unknown attribute with empty domain",
			domains: []Domain{{Attribute: "colour"}},
			want:    ErrUnknownAttribute,
		},
		{
			name: "duplicate attribute",
			domains: []Domain{
				{Attribute: AttrBrand, Values: []string{"X"}},
				{Attribute: AttrBrand, Values: []string{"Y"}},
			},
			want: ErrDuplicateAttribute,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(table, tt.domains, Options{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGenerateInvalidSizeAndCancel(t *testing.T) {
	g, err := New(brandTable(t), []Domain{{Attribute: AttrBrand, Values: []string{"X"}}}, Options{})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	entries, err := g.Generate(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, entries)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCombinations(t *testing.T) {
	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {1, 2}}, Combinations(3, 2))
	assert.Len(t, Combinations(5, 2), 10)
	assert.Len(t, Combinations(5, 5), 1)
	assert.Nil(t, Combinations(2, 3))
	assert.Nil(t, Combinations(2, 0))
}

type recordingLogger struct {
	logger.Logger
	debug []map[string]interface{}
}

func (r *recordingLogger) Debug(_ string, fields map[string]interface{}) {
	r.debug = append(r.debug, fields)
}

func TestNearMissHook(t *testing.T) {
	rec := &recordingLogger{Logger: logger.NewNoOpLogger()}
	hook := NearMissHook(rec, 5)

	hook(Rejection{Query: QuerySpec{AttrBrand: "Y"}, Support: 17, MinSupport: 20})
	hook(Rejection{Query: QuerySpec{AttrBrand: "W"}, Support: 3, MinSupport: 20})
	hook(Rejection{Query: QuerySpec{AttrBrand: "V"}, Support: 0, MinSupport: 2})

	require.Len(t, rec.debug, 1)
	assert.Equal(t, "brand=Y", rec.debug[0]["query"])
	assert.Equal(t, 17, rec.debug[0]["support"])
}

func TestWriteReadEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	entries := []Entry{
		{Query: QuerySpec{AttrBrand: "X", AttrPrice: "<30"}, GroundTruth: []catalog.ItemID{"1", "3"}},
	}

	path, err := WriteEntries(dir, 2, entries)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "valid_queries_2_features.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var generic []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &generic))
	require.Len(t, generic, 1)
	assert.Equal(t, []interface{}{float64(1), float64(3)}, generic[0]["results"])

	back, err := ReadEntries(path)
	require.NoError(t, err)
	assert.Equal(t, entries, back)

	path, err = WriteEntries(dir, 4, nil)
	require.NoError(t, err)
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))
}

func TestDefaultDomains(t *testing.T) {
	cfg := DefaultDomainConfig()
	cfg.OlfactoryGroups = []string{"Floreale"}
	domains := DefaultDomains(brandTable(t), cfg)

	var attrs []string
	for _, d := range domains {
		attrs = append(attrs, d.Attribute)
	}
	assert.Equal(t, []string{AttrBrand, AttrCategory, AttrCapacity, AttrOlfactory, AttrPrice}, attrs)
	assert.Equal(t, []string{"Z", "X"}, domains[0].Values)
	assert.Equal(t, []string{"50 ml"}, domains[2].Values)

	_, err := New(brandTable(t), domains, Options{})
	require.NoError(t, err)
}
