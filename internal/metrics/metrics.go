// Package metrics holds the Prometheus collectors shared by generation,
// evaluation and retrieval.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BenchmarkQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodeval_benchmark_queries_total",
			Help: "Candidate benchmark queries by outcome (kept or rejected)",
		},
		[]string{"outcome"},
	)

	EntriesEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodeval_entries_evaluated_total",
			Help: "Entries for which a method's metrics were computed",
		},
		[]string{"method"},
	)

	EntriesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodeval_entries_skipped_total",
			Help: "Entries or method results skipped during evaluation",
		},
		[]string{"reason"},
	)

	FilesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodeval_files_processed_total",
			Help: "Result files processed by status",
		},
		[]string{"status"},
	)

	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prodeval_retrieval_duration_seconds",
			Help:    "Duration of retrieval calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
