package retrieve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
	"github.com/XiaoConstantine/prodeval/pkg/eval"
)

// ErrSearchFailed is returned when the search backend answers with an error.
var ErrSearchFailed = errors.New("search query failed")

// ElasticConfig configures an ElasticSearcher.
type ElasticConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
	Fields    []string `mapstructure:"fields"`
	Size      int      `mapstructure:"size"`
}

// ElasticSearcher runs the shopper phrasing as a multi_match query.
type ElasticSearcher struct {
	client *elasticsearch.Client
	cfg    ElasticConfig
}

// NewElasticSearcher creates a searcher. Index defaults to "products" and
// Size to 1000.
func NewElasticSearcher(cfg ElasticConfig) (*ElasticSearcher, error) {
	if cfg.Index == "" {
		cfg.Index = "products"
	}
	if cfg.Size <= 0 {
		cfg.Size = 1000
	}
	if len(cfg.Fields) == 0 {
		cfg.Fields = []string{"name^2", "brand", "category", "capacity", "olfactory", "description"}
	}

	esCfg := elasticsearch.Config{Addresses: cfg.Addresses}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}
	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticSearcher{client: client, cfg: cfg}, nil
}

// Method implements Retriever.
func (s *ElasticSearcher) Method() eval.Method { return eval.MethodText }

// Retrieve searches for the query's shopper phrasing.
func (s *ElasticSearcher) Retrieve(ctx context.Context, q benchgen.QuerySpec) ([]catalog.ItemID, error) {
	return s.Search(ctx, Keywords(q))
}

// Search requires every term of text to appear across the configured fields
// and returns the ids found in each hit's _source.id.
func (s *ElasticSearcher) Search(ctx context.Context, text string) ([]catalog.ItemID, error) {
	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":    text,
				"fields":   s.cfg.Fields,
				"operator": "and",
			},
		},
		"_source": []string{"id"},
		"size":    s.cfg.Size,
	})
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{s.cfg.Index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.String())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]catalog.ItemID, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		raw, ok := hit.Source["id"]
		if !ok {
			continue
		}
		id, err := catalog.CanonicalID(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return sortedUnique(ids), nil
}
