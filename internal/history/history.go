// Package history is an append-only local audit trail of what this agent
// has done: every status transition a job passes through, recorded for
// diagnostics. It is never read back to resume or reconstruct in-flight
// scan state — restart behavior is governed entirely by the scanner
// binaries' own on-disk checkpoints (see internal/resume).
package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/ctrlscan/scan-agent/internal/config"
	"github.com/ctrlscan/scan-agent/internal/database"
	"github.com/google/uuid"
)

const table = "job_history"

// Record is one row of the audit trail, tagged for database.DB's
// reflection-based Insert.
type Record struct {
	ID         int64  `db:"id"`
	RunID      string `db:"run_id"`
	JobID      int    `db:"job_id"`
	ScanBinary string `db:"scan_binary"`
	Stem       string `db:"stem"`
	Status     string `db:"status"`
	PID        int    `db:"pid"`
	Detail     string `db:"detail"`
	RecordedAt string `db:"recorded_at"`
}

// Store records job status transitions. A nil Store is valid and a no-op,
// so callers do not need to branch on whether history is configured.
type Store struct {
	db    database.DB
	runID string
}

// Open constructs a Store from cfg. An empty Driver disables history
// entirely: Open returns (nil, nil) and callers get the no-op Store
// behavior for free via the nil-receiver methods below.
func Open(ctx context.Context, cfg config.HistoryConfig) (*Store, error) {
	if cfg.Driver == "" {
		return nil, nil
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}

	return &Store{db: db, runID: uuid.NewString()}, nil
}

// Close releases the underlying database connection. Safe on a nil Store.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one status transition to the audit trail. Failures are
// logged, not returned: the history store is diagnostic only and must
// never block or fail a job. Safe on a nil Store.
func (s *Store) Record(ctx context.Context, jobID int, scanBinary, stem, status string, pid int, detail string) {
	if s == nil {
		return
	}
	rec := Record{
		RunID:      s.runID,
		JobID:      jobID,
		ScanBinary: scanBinary,
		Stem:       stem,
		Status:     status,
		PID:        pid,
		Detail:     detail,
		RecordedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := s.db.Insert(ctx, table, rec); err != nil {
		slog.Warn("history: recording transition failed", "job_id", jobID, "status", status, "error", err)
	}
}
