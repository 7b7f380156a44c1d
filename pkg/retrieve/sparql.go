package retrieve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
	"github.com/XiaoConstantine/prodeval/pkg/eval"
)

// ErrEndpoint is returned for non-2xx answers from a SPARQL endpoint.
var ErrEndpoint = errors.New("sparql endpoint error")

// BuildSPARQL renders a query as a schema.org SPARQL SELECT over products.
// Category and olfactory group match by substring, brand and capacity exactly,
// and price as a strict ceiling on the offer price. A malformed price is left out.
func BuildSPARQL(q benchgen.QuerySpec) string {
	var b strings.Builder
	b.WriteString("PREFIX schema: <http://schema.org/>\n")
	b.WriteString("PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>\n\n")
	b.WriteString("SELECT ?product\nWHERE {\n")
	b.WriteString("  ?product a schema:Product ;\n           schema:name ?name .\n")

	price := ""
	if ceiling, err := benchgen.ParsePriceThreshold(q[benchgen.AttrPrice]); err == nil {
		price = strconv.FormatFloat(ceiling, 'f', -1, 64)
	}
	if price != "" {
		b.WriteString("  ?product schema:offers ?offer .\n")
	}
	if v := q[benchgen.AttrCategory]; v != "" {
		fmt.Fprintf(&b, "  ?product schema:category ?category . FILTER(CONTAINS(?category, %s))\n", literal(v))
	}
	if v := q[benchgen.AttrCapacity]; v != "" {
		fmt.Fprintf(&b, "  ?product schema:additionalProperty [ a schema:PropertyValue ; schema:name \"Capacita\" ; schema:value %s ] .\n", literal(v))
	}
	if v := q[benchgen.AttrBrand]; v != "" {
		fmt.Fprintf(&b, "  ?product schema:brand [ a schema:Brand ; schema:name %s ] .\n", literal(v))
	}
	if v := q[benchgen.AttrOlfactory]; v != "" {
		fmt.Fprintf(&b, "  ?product schema:additionalProperty [ a schema:PropertyValue ; schema:name \"Gruppo Olfattivo\" ; schema:value ?olfattivo ] . FILTER(CONTAINS(?olfattivo, %s))\n", literal(v))
	}
	if price != "" {
		b.WriteString("  ?offer schema:price ?price ;\n         schema:priceCurrency ?currency .\n")
		fmt.Fprintf(&b, "  FILTER(xsd:decimal(?price) < %s)\n", price)
	}
	b.WriteString("}")
	return b.String()
}

func literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
	return `"` + r.Replace(s) + `"`
}

// PermalinkIndex maps product page URIs to catalog ids.
type PermalinkIndex map[string]catalog.ItemID

// NewPermalinkIndex indexes the permalinks of table.
func NewPermalinkIndex(t *catalog.Table) PermalinkIndex {
	idx := make(PermalinkIndex, t.Len())
	for _, it := range t.Items() {
		if it.Permalink != "" {
			idx[it.Permalink] = it.ID
		}
	}
	return idx
}

// Lookup resolves a product URI, ignoring the rich snippet fragment.
func (p PermalinkIndex) Lookup(uri string) (catalog.ItemID, bool) {
	uri = strings.Replace(uri, "/#richSnippet", "", 1)
	if id, ok := p[uri]; ok {
		return id, true
	}
	id, ok := p[strings.TrimSuffix(uri, "/")]
	if !ok {
		id, ok = p[uri+"/"]
	}
	return id, ok
}

// StructuredSearcher executes generated SPARQL against an endpoint.
type StructuredSearcher struct {
	endpoint   string
	client     *http.Client
	permalinks PermalinkIndex
}

// NewStructuredSearcher creates a searcher. A nil client selects one with a 30 second timeout.
func NewStructuredSearcher(endpoint string, permalinks PermalinkIndex, client *http.Client) *StructuredSearcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &StructuredSearcher{endpoint: endpoint, client: client, permalinks: permalinks}
}

// Method implements Retriever.
func (s *StructuredSearcher) Method() eval.Method { return eval.MethodSPARQL }

// Retrieve builds and runs the SPARQL for q.
func (s *StructuredSearcher) Retrieve(ctx context.Context, q benchgen.QuerySpec) ([]catalog.ItemID, error) {
	return s.Query(ctx, BuildSPARQL(q))
}

type sparqlResults struct {
	Results struct {
		Bindings []map[string]struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

// Query runs raw SPARQL and maps the ?product bindings to catalog ids.
// URIs without a catalog permalink are dropped.
func (s *StructuredSearcher) Query(ctx context.Context, sparql string) ([]catalog.ItemID, error) {
	params := url.Values{}
	params.Set("query", sparql)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", ErrEndpoint, resp.Status, strings.TrimSpace(string(body)))
	}

	var r sparqlResults
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode sparql results: %w", err)
	}

	ids := make([]catalog.ItemID, 0, len(r.Results.Bindings))
	for _, binding := range r.Results.Bindings {
		product, ok := binding["product"]
		if !ok || product.Value == "" {
			continue
		}
		if id, ok := s.permalinks.Lookup(product.Value); ok {
			ids = append(ids, id)
		}
	}
	return sortedUnique(ids), nil
}
