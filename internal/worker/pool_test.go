package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ctrlscan/scan-agent/internal/controlplane"
)

type countingRunner struct {
	mu  sync.Mutex
	ran []int
}

func (r *countingRunner) Run(_ context.Context, job controlplane.ScanJob) error {
	r.mu.Lock()
	r.ran = append(r.ran, job.ID)
	r.mu.Unlock()
	return nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ran)
}

func TestPoolRunsEnqueuedJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &countingRunner{}
	pool := New(ctx, 2, runner)

	for i := 0; i < 5; i++ {
		pool.Enqueue(ctx, Item{Job: controlplane.ScanJob{ID: i}})
	}

	deadline := time.Now().Add(2 * time.Second)
	for runner.count() < 5 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if runner.count() != 5 {
		t.Fatalf("expected 5 jobs run, got %d", runner.count())
	}
}

type failingRunner struct {
	calls int32
}

func (r *failingRunner) Run(_ context.Context, _ controlplane.ScanJob) error {
	atomic.AddInt32(&r.calls, 1)
	return errors.New("boom")
}

func TestPoolSwallowsRunnerErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &failingRunner{}
	pool := New(ctx, 1, runner)

	pool.Enqueue(ctx, Item{Job: controlplane.ScanJob{ID: 1}})
	pool.Enqueue(ctx, Item{Job: controlplane.ScanJob{ID: 2}})

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&runner.calls) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if atomic.LoadInt32(&runner.calls) != 2 {
		t.Fatalf("expected worker to survive a failing job and continue, got %d calls", runner.calls)
	}
}
