package eval

import (
	"github.com/XiaoConstantine/prodeval/internal/logger"
	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
)

// CategoryFilter names a predicate over queries used to partition a report.
type CategoryFilter struct {
	Name  string
	Match func(q benchgen.QuerySpec) bool
}

// AllQueries matches every query.
func AllQueries() CategoryFilter {
	return CategoryFilter{Name: "all", Match: func(benchgen.QuerySpec) bool { return true }}
}

// WithoutFeature matches queries that do not constrain feature. With an empty
// feature it matches everything.
func WithoutFeature(feature string) CategoryFilter {
	return CategoryFilter{
		Name:  "without_" + featureLabel(feature),
		Match: func(q benchgen.QuerySpec) bool { return feature == "" || !q.Has(feature) },
	}
}

// WithFeature matches queries that constrain feature. With an empty feature
// it matches nothing.
func WithFeature(feature string) CategoryFilter {
	return CategoryFilter{
		Name:  "with_" + featureLabel(feature),
		Match: func(q benchgen.QuerySpec) bool { return feature != "" && q.Has(feature) },
	}
}

func featureLabel(feature string) string {
	if feature == "" {
		return "feature"
	}
	return feature
}

// StandardFilters returns the three passes run for every file.
func StandardFilters(feature string) []CategoryFilter {
	return []CategoryFilter{AllQueries(), WithoutFeature(feature), WithFeature(feature)}
}

// Accumulator sums one method's metric triples.
type Accumulator struct {
	Sum   Triple
	Count int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() Accumulator {
	return Accumulator{Sum: ZeroTriple()}
}

// Add returns the accumulator with t folded in.
func (a Accumulator) Add(t Triple) Accumulator {
	return Accumulator{Sum: a.Sum.Add(t), Count: a.Count + 1}
}

// Mean returns Sum / Count, or zero for an empty accumulator.
func (a Accumulator) Mean() Triple {
	return a.Sum.Div(a.Count)
}

// State is the value threaded through a category fold.
type State struct {
	QueryCount int
	Skipped    int
	Methods    map[Method]Accumulator
}

// NewState returns the initial fold state with an accumulator per method.
func NewState() State {
	s := State{Methods: make(map[Method]Accumulator, len(Methods))}
	for _, m := range Methods {
		s.Methods[m] = NewAccumulator()
	}
	return s
}

// Step folds one filter-passing record into s and returns the new state.
// Records without ground truth count toward QueryCount but are otherwise
// skipped. A method contributes only when it ran.
func Step(s State, rec Record) State {
	next := State{
		QueryCount: s.QueryCount + 1,
		Skipped:    s.Skipped,
		Methods:    make(map[Method]Accumulator, len(s.Methods)),
	}
	for m, acc := range s.Methods {
		next.Methods[m] = acc
	}

	if len(rec.GroundTruth) == 0 {
		next.Skipped++
		return next
	}
	for _, m := range Methods {
		result, ok := rec.Result(m)
		if !ok {
			continue
		}
		acc, ok := next.Methods[m]
		if !ok {
			acc = NewAccumulator()
		}
		next.Methods[m] = acc.Add(CalculateMetrics(result, rec.GroundTruth))
	}
	return next
}

// Fold runs Step over the records that pass filter.
func Fold(records []Record, filter CategoryFilter, log logger.Logger) State {
	log = logger.OrNop(log)
	s := NewState()
	for i, rec := range records {
		if !filter.Match(rec.Query) {
			continue
		}
		if len(rec.GroundTruth) == 0 {
			log.Warn("empty ground truth, skipping entry", map[string]interface{}{
				"filter": filter.Name,
				"index":  i,
				"query":  rec.Query.String(),
			})
		}
		s = Step(s, rec)
	}
	return s
}

// MethodScore is one method's mean metrics over a category.
type MethodScore struct {
	Method    Method  `json:"method"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Exact     Triple  `json:"exact"`
	Count     int     `json:"count"`
}

// CategoryResult is the aggregate for one category filter.
type CategoryResult struct {
	Filter     string        `json:"filter"`
	QueryCount int           `json:"query_count"`
	Skipped    int           `json:"skipped"`
	Methods    []MethodScore `json:"methods"`
}

// Score returns the named method's score; methods that never ran score zero.
func (c CategoryResult) Score(m Method) MethodScore {
	for _, s := range c.Methods {
		if s.Method == m {
			return s
		}
	}
	p, r, f := ZeroTriple().Floats()
	return MethodScore{Method: m, Precision: p, Recall: r, F1: f, Exact: ZeroTriple()}
}

// Result converts the fold state into a report section covering every method.
func (s State) Result(name string) CategoryResult {
	out := CategoryResult{
		Filter:     name,
		QueryCount: s.QueryCount,
		Skipped:    s.Skipped,
		Methods:    make([]MethodScore, 0, len(Methods)),
	}
	for _, m := range Methods {
		acc, ok := s.Methods[m]
		if !ok {
			acc = NewAccumulator()
		}
		mean := acc.Mean()
		p, r, f := mean.Floats()
		out.Methods = append(out.Methods, MethodScore{
			Method:    m,
			Precision: p,
			Recall:    r,
			F1:        f,
			Exact:     mean,
			Count:     acc.Count,
		})
	}
	return out
}

// EvaluateCategory aggregates the records passing filter.
func EvaluateCategory(records []Record, filter CategoryFilter, log logger.Logger) CategoryResult {
	return Fold(records, filter, log).Result(filter.Name)
}
