package benchgen

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/prodeval/internal/logger"
	"github.com/XiaoConstantine/prodeval/internal/metrics"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
)

// DefaultMinSupport is the minimum ground-truth size of a benchmark query.
const DefaultMinSupport = 20

// Domain lists the candidate values of one attribute.
type Domain struct {
	Attribute string
	Values    []string
}

// Entry is one benchmark query with its ground truth.
type Entry struct {
	Query       QuerySpec        `json:"query"`
	GroundTruth []catalog.ItemID `json:"results"`
}

// Rejection describes a query discarded for insufficient support.
type Rejection struct {
	Query      QuerySpec
	Support    int
	MinSupport int
}

// Options configures a Generator.
type Options struct {
	// MinSupport is the minimum number of matching items. Zero means DefaultMinSupport.
	MinSupport int

	// RejectHook, when set, sees every discarded query. Discarding stays silent otherwise.
	RejectHook func(Rejection)

	Logger logger.Logger
}

// Generator enumerates attribute combinations over an immutable table.
// A Generator is safe for concurrent use.
type Generator struct {
	table    *catalog.Table
	domains  []Domain
	postings [][][]int // domain index -> value index -> matching rows
	opts     Options
	log      logger.Logger
}

// New validates every domain value against the table and precomputes the rows
// each one selects. Malformed thresholds, unknown attributes and topic groups
// without an indicator column are configuration errors.
func New(table *catalog.Table, domains []Domain, opts Options) (*Generator, error) {
	if opts.MinSupport <= 0 {
		opts.MinSupport = DefaultMinSupport
	}

	g := &Generator{
		table:    table,
		domains:  make([]Domain, len(domains)),
		postings: make([][][]int, len(domains)),
		opts:     opts,
		log:      logger.OrNop(opts.Logger),
	}

	seen := make(map[string]bool, len(domains))
	for i, d := range domains {
		if seen[d.Attribute] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAttribute, d.Attribute)
		}
		seen[d.Attribute] = true

		values := make([]string, len(d.Values))
		copy(values, d.Values)
		g.domains[i] = Domain{Attribute: d.Attribute, Values: values}

		g.postings[i] = make([][]int, len(values))
		if !knownAttribute(d.Attribute) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, d.Attribute)
		}
		for j, v := range values {
			p, err := compile(table, d.Attribute, v)
			if err != nil {
				return nil, fmt.Errorf("domain %s: %w", d.Attribute, err)
			}
			g.postings[i][j] = postings(table, p)
		}
	}

	return g, nil
}

// MinSupport returns the effective support threshold.
func (g *Generator) MinSupport() int { return g.opts.MinSupport }

// Generate returns every query over n distinct attributes whose ground truth
// has at least MinSupport items. Attribute subsets follow domain order and
// values follow each domain's order, so the result is reproducible.
func (g *Generator) Generate(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}

	subsets := Combinations(len(g.domains), n)
	g.log.Info("generating combinations", map[string]interface{}{
		"size":    n,
		"subsets": len(subsets),
	})

	entries := []Entry{}
	rejected := 0
	for _, subset := range subsets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		kept := len(entries)
		before := rejected
		g.walk(subset, 0, nil, make(QuerySpec, n), &entries, &rejected)

		g.log.Debug("subset done", map[string]interface{}{
			"attributes": g.attributes(subset),
			"kept":       len(entries) - kept,
			"rejected":   rejected - before,
		})
	}

	metrics.BenchmarkQueries.WithLabelValues("kept").Add(float64(len(entries)))
	metrics.BenchmarkQueries.WithLabelValues("rejected").Add(float64(rejected))
	g.log.Info("combinations generated", map[string]interface{}{
		"size":     n,
		"kept":     len(entries),
		"rejected": rejected,
	})

	return entries, nil
}

// walk enumerates the cartesian product of the subset's domains depth first,
// narrowing the matching rows one attribute at a time.
func (g *Generator) walk(subset []int, depth int, rows []int, q QuerySpec, out *[]Entry, rejected *int) {
	if depth == len(subset) {
		if len(rows) >= g.opts.MinSupport {
			*out = append(*out, Entry{Query: q.Clone(), GroundTruth: idsOf(g.table, rows)})
			return
		}
		*rejected++
		if g.opts.RejectHook != nil {
			g.opts.RejectHook(Rejection{Query: q.Clone(), Support: len(rows), MinSupport: g.opts.MinSupport})
		}
		return
	}

	d := subset[depth]
	attr := g.domains[d].Attribute
	for j, v := range g.domains[d].Values {
		next := g.postings[d][j]
		if depth > 0 {
			next = intersect(rows, next)
		}
		q[attr] = v
		g.walk(subset, depth+1, next, q, out, rejected)
	}
	delete(q, attr)
}

func (g *Generator) attributes(subset []int) []string {
	out := make([]string, len(subset))
	for i, d := range subset {
		out[i] = g.domains[d].Attribute
	}
	return out
}

// GenerateAll runs Generate for each size.
func (g *Generator) GenerateAll(ctx context.Context, sizes []int) (map[int][]Entry, error) {
	out := make(map[int][]Entry, len(sizes))
	for _, n := range sizes {
		entries, err := g.Generate(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("size %d: %w", n, err)
		}
		out[n] = entries
	}
	return out, nil
}

// Combinations returns every k-subset of {0..n-1} as ascending index slices,
// in lexicographic order. It returns nothing when k > n.
func Combinations(n, k int) [][]int {
	if k < 1 || k > n {
		return nil
	}
	var out [][]int
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		c := make([]int, k)
		copy(c, idx)
		out = append(out, c)

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// NearMissHook returns a RejectHook that logs rejected queries whose support
// is within margin of the threshold.
func NearMissHook(log logger.Logger, margin int) func(Rejection) {
	log = logger.OrNop(log)
	return func(r Rejection) {
		if r.Support > 0 && r.MinSupport-r.Support <= margin {
			log.Debug("near-threshold query discarded", map[string]interface{}{
				"query":       r.Query.String(),
				"support":     r.Support,
				"min_support": r.MinSupport,
			})
		}
	}
}
