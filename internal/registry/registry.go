// Package registry tracks the OS processes currently supervised by this
// agent. It exists so that an inbound pause/cancel directive, which names a
// PID rather than a job, can be routed to the right running child.
package registry

import (
	"log/slog"
	"os/exec"
	"sync"
)

// Handle is the live state the supervisor keeps for a spawned child.
type Handle struct {
	Cmd    *exec.Cmd
	Binary string // argv[0], checked against the allowlist before a kill
	Stem   string
}

// Registry is a mutex-guarded map from OS PID to Handle. The operations are
// Insert, Remove and Lookup, plus Len for metrics; there is no iteration
// outside diagnostic logging (LogSnapshot).
type Registry struct {
	mu      sync.Mutex
	entries map[int]Handle
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[int]Handle)}
}

// Insert records pid as alive with the given handle. Called by the
// supervisor immediately after a successful spawn.
func (r *Registry) Insert(pid int, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[pid] = h
}

// Remove deletes pid from the registry. Safe to call even if pid is absent.
func (r *Registry) Remove(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, pid)
}

// Lookup returns the handle for pid and whether it was present. A second
// caller racing against a concurrent Remove observes absent — this is how
// directives targeting an already-completed job are serialized (§5 of the
// agent's lifecycle rules: two directives targeting the same PID, the
// second finder sees absent).
func (r *Registry) Lookup(pid int) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.entries[pid]
	return h, ok
}

// Len reports the number of live entries, for metrics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// LogSnapshot writes the current registry contents at debug level. Called
// once per poll iteration; never used to drive control flow.
func (r *Registry) LogSnapshot() {
	r.mu.Lock()
	pids := make([]int, 0, len(r.entries))
	for pid := range r.entries {
		pids = append(pids, pid)
	}
	r.mu.Unlock()
	slog.Debug("registry: snapshot", "count", len(pids), "pids", pids)
}
