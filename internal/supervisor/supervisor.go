// Package supervisor spawns scanner child processes, tracks them in a PID
// registry for out-of-band control, and moves result files through the
// pending/complete/cancelled pipeline on terminal transitions. It is the
// heart of the agent: it couples command construction, resume detection,
// process lifecycle, filesystem state and status reporting.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/ctrlscan/scan-agent/internal/command"
	"github.com/ctrlscan/scan-agent/internal/config"
	"github.com/ctrlscan/scan-agent/internal/controlplane"
	"github.com/ctrlscan/scan-agent/internal/history"
	"github.com/ctrlscan/scan-agent/internal/metrics"
	"github.com/ctrlscan/scan-agent/internal/registry"
	"github.com/ctrlscan/scan-agent/internal/resume"
)

// Supervisor runs a single ScanJob end to end: directive routing, command
// construction, spawn, wait, and filesystem/status reconciliation.
type Supervisor struct {
	cfg  *config.Config
	cp   *controlplane.Client
	reg  *registry.Registry
	hist *history.Store
}

// New returns a Supervisor bound to cfg, cp, reg and hist. All four are
// shared across every job the worker pool dispatches. hist may be nil.
func New(cfg *config.Config, cp *controlplane.Client, reg *registry.Registry, hist *history.Store) *Supervisor {
	return &Supervisor{cfg: cfg, cp: cp, reg: reg, hist: hist}
}

// Run executes job to completion. It never returns an error, so the worker
// pool can treat a single call as "handled" regardless of outcome. Scan
// failures are reported to the control plane as an error status; a scanner
// that exits non-zero on its own is only logged (its files stay in
// pending/), and a directive that cannot be carried out is only logged.
func (s *Supervisor) Run(ctx context.Context, job controlplane.ScanJob) error {
	if job.IsDirective() {
		s.handleDirective(ctx, job)
		return nil
	}
	return s.runScan(ctx, job)
}

func (s *Supervisor) runScan(ctx context.Context, job controlplane.ScanJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("supervisor: panic during scan", "job_id", job.ID, "recovered", r)
			s.cp.UpdateScan(ctx, job.ID, controlplane.SimpleStatus(controlplane.StatusError))
			metrics.JobsErrored.Inc()
			s.hist.Record(ctx, job.ID, job.ScanBinary, job.ResultFileBaseName, controlplane.StatusError, 0, fmt.Sprintf("panic: %v", r))
		}
	}()

	if !s.cfg.SupportsBinary(job.ScanBinary) {
		slog.Error("supervisor: unsupported scan binary", "job_id", job.ID, "binary", job.ScanBinary)
		s.cp.UpdateScan(ctx, job.ID, controlplane.SimpleStatus(controlplane.StatusError))
		metrics.JobsErrored.Inc()
		s.hist.Record(ctx, job.ID, job.ScanBinary, job.ResultFileBaseName, controlplane.StatusError, 0, "unsupported scan binary")
		return nil
	}

	if err := s.writeTargetFiles(job); err != nil {
		slog.Error("supervisor: writing target files failed", "job_id", job.ID, "error", err)
		s.cp.UpdateScan(ctx, job.ID, controlplane.SimpleStatus(controlplane.StatusError))
		metrics.JobsErrored.Inc()
		s.hist.Record(ctx, job.ID, job.ScanBinary, job.ResultFileBaseName, controlplane.StatusError, 0, err.Error())
		return nil
	}

	argv := s.buildArgv(job)

	// nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		slog.Error("supervisor: spawn failed", "job_id", job.ID, "argv", argv, "error", err)
		s.cp.UpdateScan(ctx, job.ID, controlplane.SimpleStatus(controlplane.StatusError))
		metrics.JobsErrored.Inc()
		s.hist.Record(ctx, job.ID, job.ScanBinary, job.ResultFileBaseName, controlplane.StatusError, 0, err.Error())
		return nil
	}

	pid := cmd.Process.Pid
	s.reg.Insert(pid, registry.Handle{Cmd: cmd, Binary: job.ScanBinary, Stem: job.ResultFileBaseName})
	slog.Info("supervisor: scan started", "job_id", job.ID, "pid", pid, "binary", job.ScanBinary, "argv", argv)

	s.cp.UpdateScan(ctx, job.ID, controlplane.Started(pid))
	s.hist.Record(ctx, job.ID, job.ScanBinary, job.ResultFileBaseName, controlplane.StatusStarted, pid, "")

	waitErr := cmd.Wait()
	s.reg.Remove(pid)

	if waitErr == nil {
		s.onSuccess(ctx, job)
		return nil
	}

	var exitErr *exec.ExitError
	if ok := asExitError(waitErr, &exitErr); ok {
		slog.Warn("supervisor: scan exited non-zero, leaving files in pending",
			"job_id", job.ID, "pid", pid, "exit_code", exitErr.ExitCode())
		return nil
	}

	slog.Error("supervisor: scan wait failed", "job_id", job.ID, "pid", pid, "error", waitErr)
	s.cp.UpdateScan(ctx, job.ID, controlplane.SimpleStatus(controlplane.StatusError))
	metrics.JobsErrored.Inc()
	s.hist.Record(ctx, job.ID, job.ScanBinary, job.ResultFileBaseName, controlplane.StatusError, pid, waitErr.Error())
	return nil
}

func (s *Supervisor) onSuccess(ctx context.Context, job controlplane.ScanJob) {
	pattern := job.ResultFileBaseName + "*"
	if err := moveWildcardFiles(pattern, s.cfg.PendingDir(), s.cfg.CompleteDir()); err != nil {
		slog.Error("supervisor: moving completed files failed", "job_id", job.ID, "error", err)
		s.cp.UpdateScan(ctx, job.ID, controlplane.SimpleStatus(controlplane.StatusError))
		metrics.JobsErrored.Inc()
		s.hist.Record(ctx, job.ID, job.ScanBinary, job.ResultFileBaseName, controlplane.StatusError, 0, err.Error())
		return
	}
	now := time.Now().Format("2006-01-02 15:04:05")
	s.cp.UpdateScan(ctx, job.ID, controlplane.Completed(job.ResultFileBaseName, now))
	metrics.JobsCompleted.Inc()
	s.hist.Record(ctx, job.ID, job.ScanBinary, job.ResultFileBaseName, controlplane.StatusCompleted, 0, "")
}

// writeTargetFiles writes the job's targets (and, if present, excluded
// targets) to the agent's target_files_dir.
func (s *Supervisor) writeTargetFiles(job controlplane.ScanJob) error {
	p := command.PathsFor(s.cfg, job)
	if err := os.WriteFile(p.TargetsFile, []byte(job.Targets), 0o644); err != nil {
		return fmt.Errorf("writing targets file: %w", err)
	}
	if p.ExcludedFile != "" {
		if err := os.WriteFile(p.ExcludedFile, []byte(job.ExcludedTargets), 0o644); err != nil {
			return fmt.Errorf("writing excluded targets file: %w", err)
		}
	}
	return nil
}

// buildArgv consults the resume detector before falling back to a fresh
// command for the job's scan_binary.
func (s *Supervisor) buildArgv(job controlplane.ScanJob) []string {
	p := command.PathsFor(s.cfg, job)

	switch job.ScanBinary {
	case command.PortScanner:
		jsonFile := command.JSONOutputFile(p.PendingDir, job.ResultFileBaseName)
		if resume.Masscan(jsonFile) {
			slog.Info("supervisor: resuming masscan scan", "job_id", job.ID, "output_file", jsonFile)
			return command.ResumeMasscan()
		}
		return command.BuildMasscan(job, p, s.cfg.HTTPUserAgent)

	case command.ServiceScanner:
		gnmapFile := command.GnmapFile(p.PendingDir, job.ResultFileBaseName)
		if resume.Nmap(gnmapFile) {
			slog.Info("supervisor: resuming nmap scan", "job_id", job.ID, "gnmap_file", gnmapFile)
			return command.ResumeNmap(gnmapFile)
		}
		return command.BuildNmap(job, p, s.cfg.HTTPUserAgent)

	default:
		// Reached only when supported_scan_binaries lists a binary other
		// than masscan or nmap; the nil argv then panics in runScan, whose
		// recover reports the job as an error.
		return nil
	}
}

func asExitError(err error, target **exec.ExitError) bool {
	if e, ok := err.(*exec.ExitError); ok {
		*target = e
		return true
	}
	return false
}
