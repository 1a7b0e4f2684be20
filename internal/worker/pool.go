// Package worker runs a fixed-size pool of goroutines draining a shared
// job queue. Workers are daemon-like: the pool provides no join barrier,
// because the process is expected to terminate by signal with scans still
// in flight.
package worker

import (
	"context"
	"log/slog"

	"github.com/ctrlscan/scan-agent/internal/config"
	"github.com/ctrlscan/scan-agent/internal/controlplane"
	"github.com/ctrlscan/scan-agent/internal/metrics"
)

// Item pairs a job with the config snapshot it was dispatched under.
type Item struct {
	Job controlplane.ScanJob
	Cfg *config.Config
}

// Runner executes a single dispatched item. *supervisor.Supervisor
// satisfies this via its Run method.
type Runner interface {
	Run(ctx context.Context, job controlplane.ScanJob) error
}

// Pool is a fixed number of worker goroutines sharing one queue.
type Pool struct {
	queue  chan Item
	runner Runner
}

// New starts count worker goroutines against runner. Workers begin pulling
// from the internal queue immediately; ctx cancellation stops them between
// jobs, abandoning whatever they are currently running.
func New(ctx context.Context, count int, runner Runner) *Pool {
	p := &Pool{
		queue:  make(chan Item),
		runner: runner,
	}
	for i := 0; i < count; i++ {
		go p.loop(ctx, i)
	}
	return p
}

// Enqueue adds item to the shared queue, blocking until a worker accepts
// it or ctx is cancelled.
func (p *Pool) Enqueue(ctx context.Context, item Item) {
	select {
	case p.queue <- item:
	case <-ctx.Done():
	}
}

func (p *Pool) loop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-p.queue:
			p.run(ctx, id, item)
		}
	}
}

// run swallows any error from the runner: a bad job must never kill a
// worker goroutine.
func (p *Pool) run(ctx context.Context, id int, item Item) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker: recovered from panic", "worker", id, "job_id", item.Job.ID, "recovered", r)
		}
	}()
	if !item.Job.IsDirective() {
		metrics.JobsDispatched.Inc()
	}
	if err := p.runner.Run(ctx, item.Job); err != nil {
		slog.Error("worker: job failed", "worker", id, "job_id", item.Job.ID, "error", err)
	}
}
