// Package metrics exposes the shared Prometheus instrumentation for
// every long-running SubVT service. Each binary opts in by calling
// Serve with a listen address; the collectors themselves are
// registered once at package init and incremented from the service
// packages regardless.
package metrics

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BlocksProcessed counts blocks fully persisted by the block
	// processor.
	BlocksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subvt",
		Name:      "blocks_processed_total",
		Help:      "Blocks fully decoded and persisted.",
	})

	// BlockProcessErrors counts blocks whose processing failed and
	// will be retried by replay.
	BlockProcessErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subvt",
		Name:      "block_process_errors_total",
		Help:      "Blocks whose processing failed.",
	})

	// MaterializerRunSeconds observes the duration of each full
	// validator-list materialization.
	MaterializerRunSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "subvt",
		Name:      "validator_list_run_seconds",
		Help:      "Duration of one full validator list materialization.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// MaterializedValidators gauges the size of the last published
	// validator set.
	MaterializedValidators = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "subvt",
		Name:      "materialized_validators",
		Help:      "Validators in the last published snapshot.",
	}, []string{"state"})

	// NotificationsQueued counts notification rows enqueued by the
	// generator's inspectors.
	NotificationsQueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subvt",
		Name:      "notifications_queued_total",
		Help:      "Notification rows enqueued for delivery.",
	})
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(log.Writer(), "[Metrics] ", log.LstdFlags)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("serving metrics on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("metrics: listener on %s: %w", addr, err)
	}
}
