package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/XiaoConstantine/prodeval/internal/logger"
	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
	"github.com/XiaoConstantine/prodeval/pkg/eval"
)

// AnnotatedRecord is a benchmark entry with every method's result set, in the
// shape the evaluator reads. A nil result field means the method failed.
type AnnotatedRecord struct {
	Query         benchgen.QuerySpec `json:"query"`
	TrueResults   []catalog.ItemID   `json:"true_results"`
	SPARQL        string             `json:"sparql,omitempty"`
	TextQuery     string             `json:"text_query,omitempty"`
	SPARQLResults *[]catalog.ItemID  `json:"sparql_results,omitempty"`
	TextResults   *[]catalog.ItemID  `json:"text_results,omitempty"`
	LLMResults    *[]catalog.ItemID  `json:"llm_results,omitempty"`
}

func (r *AnnotatedRecord) set(m eval.Method, ids []catalog.ItemID) {
	if ids == nil {
		ids = []catalog.ItemID{}
	}
	switch m {
	case eval.MethodSPARQL:
		r.SPARQLResults = &ids
	case eval.MethodText:
		r.TextResults = &ids
	case eval.MethodLLM:
		r.LLMResults = &ids
	}
}

// AnnotateSummary counts the outcome of an annotation run.
type AnnotateSummary struct {
	Entries  int
	Failures map[eval.Method]int
}

// Annotator runs every retriever over a benchmark file.
type Annotator struct {
	retrievers []Retriever
	log        logger.Logger
}

// NewAnnotator creates an annotator over the given retrievers.
func NewAnnotator(log logger.Logger, retrievers ...Retriever) *Annotator {
	return &Annotator{retrievers: retrievers, log: logger.OrNop(log)}
}

// AnnotatedName is the evaluator-facing name for a benchmark file.
func AnnotatedName(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + eval.DefaultSuffix
}

// Annotate attaches result sets to entries. A retriever error leaves that
// method's field absent for the entry.
func (a *Annotator) Annotate(ctx context.Context, entries []benchgen.Entry) ([]AnnotatedRecord, AnnotateSummary, error) {
	summary := AnnotateSummary{Failures: make(map[eval.Method]int)}
	out := make([]AnnotatedRecord, 0, len(entries))

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, summary, err
		}
		rec := AnnotatedRecord{
			Query:       e.Query,
			TrueResults: e.GroundTruth,
			SPARQL:      BuildSPARQL(e.Query),
			TextQuery:   Keywords(e.Query),
		}
		for _, r := range a.retrievers {
			ids, err := r.Retrieve(ctx, e.Query)
			if err != nil {
				if ctx.Err() != nil {
					return nil, summary, ctx.Err()
				}
				summary.Failures[r.Method()]++
				a.log.Warn("retrieval failed, leaving result absent", map[string]interface{}{
					"index":  i,
					"method": string(r.Method()),
					"query":  e.Query.String(),
					"error":  err.Error(),
				})
				continue
			}
			rec.set(r.Method(), ids)
		}
		out = append(out, rec)
	}
	summary.Entries = len(out)
	return out, summary, nil
}

// AnnotateFile reads a benchmark file, annotates it and writes the records to out.
func (a *Annotator) AnnotateFile(ctx context.Context, in, out string) (AnnotateSummary, error) {
	entries, err := benchgen.ReadEntries(in)
	if err != nil {
		return AnnotateSummary{}, err
	}
	records, summary, err := a.Annotate(ctx, entries)
	if err != nil {
		return summary, err
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return summary, err
	}
	if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
		return summary, fmt.Errorf("write %s: %w", out, err)
	}
	a.log.Info("annotated benchmark", map[string]interface{}{
		"in":      in,
		"out":     out,
		"entries": summary.Entries,
	})
	return summary, nil
}
