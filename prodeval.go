// Package prodeval builds product-retrieval benchmarks and scores retrieval
// methods against them.
//
// For CLI usage, install with: go install github.com/XiaoConstantine/prodeval/cmd/prodeval@latest
//
// For library usage:
//
//	table, err := catalog.LoadCSV("products.csv", catalog.DefaultColumns())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := prodeval.New(table, prodeval.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Benchmark entries whose queries match at least 20 products
//	entries, err := client.Generate(ctx, 2)
//
//	// Precision, recall and F1 per method for every *_LLM.json file
//	report, err := client.EvaluateDir(ctx, "query_combinazioni")
package prodeval

import (
	"context"

	"github.com/XiaoConstantine/prodeval/internal/logger"
	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
	"github.com/XiaoConstantine/prodeval/pkg/eval"
)

// Entry is one benchmark query with its ground truth.
type Entry = benchgen.Entry

// FileReport holds the all / without / with aggregates of one result file.
type FileReport = eval.FileReport

// BatchReport is the outcome of evaluating a directory.
type BatchReport = eval.BatchReport

// Client generates benchmarks over one catalog and evaluates result files.
type Client struct {
	gen   *benchgen.Generator
	eval  *eval.Evaluator
	sizes []int
}

// Options configures the client.
type Options struct {
	// MinSupport is the minimum number of matching products. Default: 20
	MinSupport int

	// Sizes are the combination sizes GenerateAll produces. Default: 2, 3, 4
	Sizes []int

	Domains benchgen.DomainConfig

	// Feature splits the with/without passes. Default: "price"
	Feature string

	// Suffix selects result files in EvaluateDir. Default: "_LLM.json"
	Suffix string

	Concurrency int

	Logger logger.Logger
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		MinSupport:  benchgen.DefaultMinSupport,
		Sizes:       []int{2, 3, 4},
		Domains:     benchgen.DefaultDomainConfig(),
		Feature:     eval.DefaultFeature,
		Suffix:      eval.DefaultSuffix,
		Concurrency: 1,
	}
}

// New derives attribute domains from table and validates them.
func New(table *catalog.Table, opts Options) (*Client, error) {
	gen, err := benchgen.New(table, benchgen.DefaultDomains(table, opts.Domains), benchgen.Options{
		MinSupport: opts.MinSupport,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	if len(opts.Sizes) == 0 {
		opts.Sizes = []int{2, 3, 4}
	}

	e := eval.New(eval.Options{
		Feature:     opts.Feature,
		Suffix:      opts.Suffix,
		Concurrency: opts.Concurrency,
		Logger:      opts.Logger,
	})
	return &Client{gen: gen, eval: e, sizes: opts.Sizes}, nil
}

// Generate returns the entries for every n-attribute query meeting the
// support threshold, in enumeration order.
func (c *Client) Generate(ctx context.Context, n int) ([]Entry, error) {
	return c.gen.Generate(ctx, n)
}

// GenerateAll runs Generate for each configured size.
func (c *Client) GenerateAll(ctx context.Context) (map[int][]Entry, error) {
	return c.gen.GenerateAll(ctx, c.sizes)
}

// Evaluate scores a single benchmark-with-results file.
func (c *Client) Evaluate(ctx context.Context, path string) (FileReport, error) {
	return c.eval.EvaluateFile(ctx, path)
}

// EvaluateDir scores every result file in dir. Individual file failures are
// reported in the batch, not returned.
func (c *Client) EvaluateDir(ctx context.Context, dir string) (*BatchReport, error) {
	return c.eval.ProcessAll(ctx, dir)
}

// Watch re-evaluates result files in dir as they change.
// Blocks until context is cancelled.
func (c *Client) Watch(ctx context.Context, dir string, fn func(FileReport)) error {
	return eval.NewWatcher(c.eval, 0).Watch(ctx, dir, fn)
}
