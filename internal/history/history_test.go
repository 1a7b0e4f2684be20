package history

import (
	"path/filepath"
	"testing"

	"github.com/ctrlscan/scan-agent/internal/config"
)

func TestOpenDisabledDriverIsNoop(t *testing.T) {
	store, err := Open(t.Context(), config.HistoryConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store != nil {
		t.Fatalf("expected nil store when driver is empty")
	}
	// Nil-receiver methods must be safe to call.
	store.Record(t.Context(), 1, "masscan", "job7", "started", 123, "")
	if err := store.Close(); err != nil {
		t.Fatalf("unexpected error closing nil store: %v", err)
	}
}

func TestStoreRecordsTransitions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(t.Context(), config.HistoryConfig{Driver: "sqlite", Path: dbPath})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close() //nolint:errcheck

	store.Record(t.Context(), 7, "masscan", "job7", "started", 4242, "")
	store.Record(t.Context(), 7, "masscan", "job7", "completed", 0, "")

	var rows []Record
	if err := store.db.Select(t.Context(), &rows, "SELECT id, run_id, job_id, scan_binary, stem, status, pid, detail, recorded_at FROM job_history ORDER BY id"); err != nil {
		t.Fatalf("selecting rows: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 recorded rows, got %d", len(rows))
	}
	if rows[0].Status != "started" || rows[0].PID != 4242 {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Status != "completed" {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
	if rows[0].RunID == "" || rows[0].RunID != rows[1].RunID {
		t.Errorf("expected both rows to share a non-empty run id, got %q and %q", rows[0].RunID, rows[1].RunID)
	}
}
