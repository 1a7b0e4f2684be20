// Package metrics exposes a localhost-only Prometheus endpoint for the
// agent's internal counters and gauges. Bound to 127.0.0.1 only: this is
// an operator diagnostics surface, not a public service.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters and gauges the supervisor, worker pool and poller update as
// jobs move through their lifecycle.
var (
	JobsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scan_agent_jobs_dispatched_total",
		Help: "Total scan jobs dispatched to a worker.",
	})
	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scan_agent_jobs_completed_total",
		Help: "Total scan jobs reaching the completed state.",
	})
	JobsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scan_agent_jobs_cancelled_total",
		Help: "Total scan jobs reaching the cancelled state.",
	})
	JobsErrored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scan_agent_jobs_errored_total",
		Help: "Total scan jobs reaching the error state.",
	})
	RegistrySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scan_agent_pid_registry_size",
		Help: "Current number of live child processes tracked in the PID registry.",
	})
)

// Serve starts the /metrics HTTP server on 127.0.0.1:port and blocks until
// ctx is cancelled. Port 0 disables the server entirely.
func Serve(ctx context.Context, port int) {
	if port == 0 {
		return
	}

	addr := "127.0.0.1:" + strconv.Itoa(port)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	slog.Info("metrics: serving", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics: server failed", "error", err)
	}
}
