package retrieve

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
	"github.com/XiaoConstantine/prodeval/pkg/eval"
)

// NLSearcher answers a query the way a shopper's text would be answered:
// the query is rendered as keywords, translated back into fields by a
// language model, and run as structured SPARQL.
type NLSearcher struct {
	translator *Translator
	structured *StructuredSearcher
}

// NewNLSearcher combines a translator with a structured searcher.
func NewNLSearcher(t *Translator, s *StructuredSearcher) *NLSearcher {
	return &NLSearcher{translator: t, structured: s}
}

// Method implements Retriever.
func (n *NLSearcher) Method() eval.Method { return eval.MethodLLM }

// Retrieve translates Keywords(q) and runs the resulting query.
func (n *NLSearcher) Retrieve(ctx context.Context, q benchgen.QuerySpec) ([]catalog.ItemID, error) {
	ids, _, err := n.Search(ctx, Keywords(q))
	return ids, err
}

// Search translates text and returns the ids with the SPARQL that produced them.
func (n *NLSearcher) Search(ctx context.Context, text string) ([]catalog.ItemID, string, error) {
	spec, err := n.translator.Translate(ctx, text)
	if err != nil {
		return nil, "", fmt.Errorf("translate %q: %w", text, err)
	}
	sparql := BuildSPARQL(spec)
	ids, err := n.structured.Query(ctx, sparql)
	if err != nil {
		return nil, sparql, err
	}
	return ids, sparql, nil
}
