// Package poller runs the agent's top-level loop: fetch jobs from the
// control plane on an interval, enqueue them onto the worker pool, and
// exit cleanly on interrupt while abandoning whatever workers are still
// running.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/ctrlscan/scan-agent/internal/config"
	"github.com/ctrlscan/scan-agent/internal/controlplane"
	"github.com/ctrlscan/scan-agent/internal/metrics"
)

// interJobDelay spaces consecutive enqueues so the supervisor has time to
// PATCH "started" before the next poll could observe stale state. It is a
// deliberate rate-limit on in-flight unannounced work, not a correctness
// mechanism.
const interJobDelay = 5 * time.Second

// Fetcher is satisfied by *controlplane.Client.
type Fetcher interface {
	FetchJobs(ctx context.Context) []controlplane.ScanJob
}

// Registry is satisfied by *registry.Registry.
type Registry interface {
	LogSnapshot()
	Len() int
}

// Poller ties the control-plane client, config and worker pool together
// into the agent's run loop.
type Poller struct {
	cfg     *config.Config
	fetcher Fetcher
	reg     Registry
	enqueue func(ctx context.Context, job controlplane.ScanJob)
}

// New returns a Poller. enqueue is called once per fetched job; it is
// expected to block until the worker pool accepts the item (or ctx is
// cancelled), matching worker.Pool.Enqueue's semantics.
func New(cfg *config.Config, fetcher Fetcher, reg Registry, enqueue func(ctx context.Context, job controlplane.ScanJob)) *Poller {
	return &Poller{cfg: cfg, fetcher: fetcher, reg: reg, enqueue: enqueue}
}

// Run blocks until ctx is cancelled. On cancellation it returns
// immediately; in-flight scans dispatched to workers are not waited on.
func (p *Poller) Run(ctx context.Context) {
	pollInterval := time.Duration(p.cfg.CallbackIntervalSec) * time.Second

	for {
		if ctx.Err() != nil {
			slog.Info("poller: interrupted, exiting loop")
			return
		}

		p.reg.LogSnapshot()
		metrics.RegistrySize.Set(float64(p.reg.Len()))

		jobs := p.fetcher.FetchJobs(ctx)
		if len(jobs) == 0 {
			if !sleepOrDone(ctx, pollInterval) {
				return
			}
			continue
		}

		for i, job := range jobs {
			p.enqueue(ctx, job)
			if i < len(jobs)-1 {
				if !sleepOrDone(ctx, interJobDelay) {
					return
				}
			}
		}
	}
}

// sleepOrDone waits for d or ctx cancellation, whichever comes first.
// Returns false if ctx was cancelled first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
