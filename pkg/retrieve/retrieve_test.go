package retrieve

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
	"github.com/XiaoConstantine/prodeval/pkg/eval"
)

func testTable(t *testing.T) *catalog.Table {
	t.Helper()
	items := []catalog.Item{
		{ID: "1", Name: "Rosa Eau de Parfum", Brand: "Acme", Category: "Fragranze Donna", Capacity: "50 ml", Price: 29.9,
			Permalink: "https://shop.example/rosa", Groups: map[string]bool{"Floreale": true}},
		{ID: "2", Name: "Cedro Intenso", Brand: "Acme", Category: "Fragranze Uomo", Capacity: "100 ml", Price: 45,
			Permalink: "https://shop.example/cedro", Groups: map[string]bool{"Legnoso": true}},
		{ID: "3", Name: "Giglio Bianco", Brand: "Flora", Category: "Fragranze Donna", Capacity: "50 ml", Price: 19,
			Permalink: "https://shop.example/giglio/", Groups: map[string]bool{"Floreale": true}},
	}
	table, err := catalog.NewTable(items, []string{"Floreale", "Legnoso"})
	require.NoError(t, err)
	return table
}

// stubRetriever answers from a fixed map and counts calls.
type stubRetriever struct {
	mu      sync.Mutex
	method  eval.Method
	answers map[string][]catalog.ItemID
	err     error
	calls   int
}

func (s *stubRetriever) Method() eval.Method { return s.method }

func (s *stubRetriever) Retrieve(_ context.Context, q benchgen.QuerySpec) ([]catalog.ItemID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.answers[q.String()], nil
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query benchgen.QuerySpec
		want  string
	}{
		{
			name: "all attributes in shopper order",
			query: benchgen.QuerySpec{
				"brand":              "Acme",
				"category":           "Fragranze Donna",
				"capacity":           "50 ml",
				"olfactory_category": "Floreale",
				"price":              "<30",
			},
			want: "fragranze donna floreale 50 ml acme minori di 30 euro",
		},
		{
			name:  "price only",
			query: benchgen.QuerySpec{"price": "< 75"},
			want:  "minori di 75 euro",
		},
		{
			name:  "empty",
			query: benchgen.QuerySpec{},
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Keywords(tt.query))
		})
	}
}

func TestTimedPassesThrough(t *testing.T) {
	stub := &stubRetriever{
		method:  eval.MethodText,
		answers: map[string][]catalog.ItemID{"brand=Acme": {"1", "2"}},
	}
	r := Timed(stub)
	assert.Equal(t, eval.MethodText, r.Method())

	ids, err := r.Retrieve(context.Background(), benchgen.QuerySpec{"brand": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, []catalog.ItemID{"1", "2"}, ids)

	stub.err = errors.New("down")
	_, err = r.Retrieve(context.Background(), benchgen.QuerySpec{"brand": "Acme"})
	assert.Error(t, err)
}
