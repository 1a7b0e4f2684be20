package supervisor

import (
	"context"
	"log/slog"

	"github.com/ctrlscan/scan-agent/internal/controlplane"
	"github.com/ctrlscan/scan-agent/internal/metrics"
	"github.com/ctrlscan/scan-agent/internal/registry"
)

// handleDirective carries out a pause or cancel control action. It never
// invents a status transition for a PID it cannot find: if the scan has
// already completed on its own, the directive is a no-op.
func (s *Supervisor) handleDirective(ctx context.Context, job controlplane.ScanJob) {
	h, ok := s.reg.Lookup(job.ScanBinaryProcessID)
	if !ok {
		slog.Info("supervisor: directive targets unknown pid, ignoring",
			"job_id", job.ID, "pid", job.ScanBinaryProcessID, "directive", job.ScanStatus)
		return
	}

	if !s.cfg.SupportsBinary(h.Binary) {
		slog.Warn("supervisor: refusing to kill pid with unsupported binary",
			"job_id", job.ID, "pid", job.ScanBinaryProcessID, "binary", h.Binary)
		return
	}

	killAndDrain(h)
	s.reg.Remove(job.ScanBinaryProcessID)

	stem := job.ResultFileBaseName
	if stem == "" {
		stem = h.Stem
	}

	switch job.ScanStatus {
	case controlplane.StatusCancel:
		pattern := stem + "*"
		if err := moveWildcardFiles(pattern, s.cfg.PendingDir(), s.cfg.CancelledDir()); err != nil {
			slog.Error("supervisor: moving cancelled files failed", "job_id", job.ID, "error", err)
		}
		s.cp.UpdateScan(ctx, job.ID, controlplane.SimpleStatus(controlplane.StatusCancelled))
		metrics.JobsCancelled.Inc()
		s.hist.Record(ctx, job.ID, h.Binary, stem, controlplane.StatusCancelled, job.ScanBinaryProcessID, "")

	case controlplane.StatusPause:
		// Files stay in pending/. The port-scanner checkpoints itself to
		// paused.conf on the kill signal; the agent does not create it.
		s.cp.UpdateScan(ctx, job.ID, controlplane.SimpleStatus(controlplane.StatusPaused))
		s.hist.Record(ctx, job.ID, h.Binary, stem, controlplane.StatusPaused, job.ScanBinaryProcessID, "")
	}
}

// killAndDrain delivers the kill signal to the child. runScan does not wire
// the child's Stdout or Stderr, so no scanner output is collected after the
// kill; the killed process is reaped by runScan's own Wait.
func killAndDrain(h registry.Handle) {
	if h.Cmd == nil || h.Cmd.Process == nil {
		return
	}
	if err := h.Cmd.Process.Kill(); err != nil {
		slog.Warn("supervisor: kill failed", "pid", h.Cmd.Process.Pid, "error", err)
	}
}
