package eval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/XiaoConstantine/prodeval/internal/logger"
	"github.com/XiaoConstantine/prodeval/internal/metrics"
)

// Defaults for Options.
const (
	DefaultSuffix  = "_LLM.json"
	DefaultFeature = "price"
)

// Options configures an Evaluator.
type Options struct {
	// Feature is the attribute splitting the with/without passes. Empty
	// disables the split: "without" covers everything, "with" nothing.
	Feature string

	// Suffix selects the files ProcessAll evaluates.
	Suffix string

	// Concurrency bounds how many files ProcessAll evaluates at once.
	Concurrency int

	Logger logger.Logger
}

// DefaultOptions returns the options used by the CLI when nothing is configured.
func DefaultOptions() Options {
	return Options{Feature: DefaultFeature, Suffix: DefaultSuffix, Concurrency: 1}
}

// FileReport holds the three category aggregates for one result file.
type FileReport struct {
	File       string           `json:"file"`
	Feature    string           `json:"feature,omitempty"`
	Invalid    int              `json:"invalid_records,omitempty"`
	Categories []CategoryResult `json:"categories"`
}

// Category returns the aggregate for the named filter.
func (r FileReport) Category(name string) (CategoryResult, bool) {
	for _, c := range r.Categories {
		if c.Filter == name {
			return c, true
		}
	}
	return CategoryResult{}, false
}

// FileFailure records a file that could not be evaluated.
type FileFailure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// BatchReport is the outcome of ProcessAll.
type BatchReport struct {
	RunID     string        `json:"run_id"`
	Directory string        `json:"directory"`
	Timestamp string        `json:"timestamp"`
	Feature   string        `json:"feature,omitempty"`
	Files     []FileReport  `json:"files"`
	Failures  []FileFailure `json:"failures,omitempty"`
}

// Evaluator scores result files. It holds no mutable state and is safe for
// concurrent use.
type Evaluator struct {
	opts Options
	log  logger.Logger
}

// New creates an Evaluator, filling zero-valued Suffix and Concurrency with defaults.
func New(opts Options) *Evaluator {
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Evaluator{opts: opts, log: logger.OrNop(opts.Logger)}
}

// Options returns the effective options.
func (e *Evaluator) Options() Options { return e.opts }

// EvaluateRecords runs the standard category passes over already-decoded records.
func (e *Evaluator) EvaluateRecords(name string, records []Record) FileReport {
	log := e.log.WithFields(map[string]interface{}{"file": name})

	for i, rec := range records {
		for _, field := range rec.Malformed {
			log.Warn("malformed field treated as absent", map[string]interface{}{
				"index": i,
				"field": field,
			})
			metrics.EntriesSkipped.WithLabelValues("malformed_field").Inc()
		}
	}

	report := FileReport{File: name, Feature: e.opts.Feature}
	for _, f := range StandardFilters(e.opts.Feature) {
		report.Categories = append(report.Categories, EvaluateCategory(records, f, log))
	}

	all := report.Categories[0]
	for _, s := range all.Methods {
		metrics.EntriesEvaluated.WithLabelValues(string(s.Method)).Add(float64(s.Count))
	}
	metrics.EntriesSkipped.WithLabelValues("empty_ground_truth").Add(float64(all.Skipped))

	return report
}

// EvaluateFile loads one result file and aggregates it. A file with no
// entries still yields a report with zero counts.
func (e *Evaluator) EvaluateFile(ctx context.Context, path string) (FileReport, error) {
	if err := ctx.Err(); err != nil {
		return FileReport{}, err
	}

	records, invalid, err := LoadRecords(path)
	if err != nil {
		return FileReport{}, fmt.Errorf("load %s: %w", path, err)
	}
	if invalid > 0 {
		e.log.Warn("dropped records that are not query objects", map[string]interface{}{
			"file":  path,
			"count": invalid,
		})
		metrics.EntriesSkipped.WithLabelValues("invalid_record").Add(float64(invalid))
	}

	report := e.EvaluateRecords(filepath.Base(path), records)
	report.Invalid = invalid
	return report, nil
}

// Matches reports whether name is selected by the configured suffix.
func (e *Evaluator) Matches(name string) bool {
	return strings.HasSuffix(name, e.opts.Suffix)
}

// ListFiles returns the qualifying files in dir, sorted by name.
func (e *Evaluator) ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !e.Matches(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ProcessAll evaluates every qualifying file in dir. Failures on individual
// files are collected in the report and do not stop the batch; only an
// unreadable directory or cancellation returns an error.
func (e *Evaluator) ProcessAll(ctx context.Context, dir string) (*BatchReport, error) {
	names, err := e.ListFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	batch := &BatchReport{
		RunID:     uuid.NewString(),
		Directory: dir,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Feature:   e.opts.Feature,
	}
	log := e.log.WithFields(map[string]interface{}{"run_id": batch.RunID})
	log.Info("evaluating result files", map[string]interface{}{
		"dir":   dir,
		"files": len(names),
	})

	reports := make([]FileReport, len(names))
	errs := make([]error, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i], errs[i] = e.EvaluateFile(gctx, filepath.Join(dir, name))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, name := range names {
		if errs[i] != nil {
			log.Warn("file evaluation failed", map[string]interface{}{
				"file":  name,
				"error": errs[i].Error(),
			})
			metrics.FilesProcessed.WithLabelValues("failed").Inc()
			batch.Failures = append(batch.Failures, FileFailure{File: name, Error: errs[i].Error()})
			continue
		}
		metrics.FilesProcessed.WithLabelValues("ok").Inc()
		batch.Files = append(batch.Files, reports[i])
	}

	log.Info("evaluation complete", map[string]interface{}{
		"processed": len(batch.Files),
		"failed":    len(batch.Failures),
	})
	return batch, nil
}
