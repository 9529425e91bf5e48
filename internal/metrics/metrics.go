// Package metrics exposes run counters; useful when the payout job runs
// on a schedule and a long backfill is in flight.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BlocksFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leasepay_blocks_fetched_total",
		Help: "Blocks fetched from the node in this run.",
	})
	BlocksCached = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leasepay_blocks_cached_total",
		Help: "Block summaries appended to the cache in this run.",
	})
	ResumeHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leasepay_resume_height",
		Help: "First height fetched from the node this run.",
	})
	BlocksDistributed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leasepay_blocks_distributed_total",
		Help: "Beneficiary-forged blocks whose rewards were distributed.",
	})
	InstructionsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leasepay_instructions_emitted_total",
		Help: "Payment instructions written to the output file.",
	})
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
