// Package retrieve runs benchmark queries against the retrieval backends
// under comparison and attaches their result sets to benchmark entries.
package retrieve

import (
	"context"
	"strings"
	"time"

	"github.com/XiaoConstantine/prodeval/internal/metrics"
	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
	"github.com/XiaoConstantine/prodeval/pkg/eval"
)

// Retriever answers a structured query with the identifiers it finds.
type Retriever interface {
	Method() eval.Method
	Retrieve(ctx context.Context, q benchgen.QuerySpec) ([]catalog.ItemID, error)
}

// Keywords renders a query as the phrase a shopper would type:
// "{category} {olfactory} {capacity} {brand} minori di {price} euro", lower-cased.
func Keywords(q benchgen.QuerySpec) string {
	var parts []string
	for _, attr := range []string{benchgen.AttrCategory, benchgen.AttrOlfactory, benchgen.AttrCapacity, benchgen.AttrBrand} {
		if v := strings.ToLower(strings.TrimSpace(q[attr])); v != "" {
			parts = append(parts, v)
		}
	}
	if p := strings.TrimSpace(strings.ReplaceAll(q[benchgen.AttrPrice], "<", "")); p != "" {
		parts = append(parts, "minori di "+p+" euro")
	}
	return strings.Join(parts, " ")
}

type timed struct {
	Retriever
}

// Timed records the duration of every call in the retrieval histogram.
func Timed(r Retriever) Retriever {
	return timed{r}
}

func (t timed) Retrieve(ctx context.Context, q benchgen.QuerySpec) ([]catalog.ItemID, error) {
	start := time.Now()
	ids, err := t.Retriever.Retrieve(ctx, q)
	metrics.RetrievalDuration.WithLabelValues(string(t.Method())).Observe(time.Since(start).Seconds())
	return ids, err
}

func sortedUnique(ids []catalog.ItemID) []catalog.ItemID {
	return catalog.NewIDSet(ids...).Sorted()
}
