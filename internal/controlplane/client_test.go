package controlplane

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL:   srv.URL,
		AgentID:   "test-agent",
		Token:     "secret",
		UserAgent: "test-agent/1.0",
	})
}

func TestFetchJobsSuccess(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/scheduled_scans" {
			t.Errorf("expected /api/scheduled_scans, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token secret" {
			t.Errorf("expected Authorization header, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode([]ScanJob{{ID: 1, ScanStatus: StatusPending}})
	})

	jobs := c.FetchJobs(t.Context())
	if len(jobs) != 1 || jobs[0].ID != 1 {
		t.Fatalf("expected one job with ID 1, got %v", jobs)
	}
}

func TestFetchJobsNon200(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	jobs := c.FetchJobs(t.Context())
	if jobs != nil {
		t.Fatalf("expected nil jobs on 500 response, got %v", jobs)
	}
}

func TestFetchJobsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(Options{BaseURL: srv.URL, AgentID: "test-agent", Token: "secret"})
	jobs := c.FetchJobs(t.Context())
	if jobs != nil {
		t.Fatalf("expected nil jobs on transport error, got %v", jobs)
	}
}

func TestFetchJobsMalformedBody(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("not json"))
	})

	jobs := c.FetchJobs(t.Context())
	if jobs != nil {
		t.Fatalf("expected nil jobs on malformed body, got %v", jobs)
	}
}

// TestFetchJobsFlapRecovers reproduces the documented scenario where two
// consecutive failed GETs are followed by a successful one: the client
// carries no state between calls, so the third call succeeds cleanly.
func TestFetchJobsFlapRecovers(t *testing.T) {
	var call int
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		call++
		switch call {
		case 1, 2:
			w.WriteHeader(http.StatusInternalServerError)
		case 3:
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode([]ScanJob{{ID: 9, ScanStatus: StatusPending}})
		}
	})

	if jobs := c.FetchJobs(t.Context()); jobs != nil {
		t.Fatalf("call 1: expected nil, got %v", jobs)
	}
	if jobs := c.FetchJobs(t.Context()); jobs != nil {
		t.Fatalf("call 2: expected nil, got %v", jobs)
	}
	jobs := c.FetchJobs(t.Context())
	if len(jobs) != 1 || jobs[0].ID != 9 {
		t.Fatalf("call 3: expected recovery with one job, got %v", jobs)
	}
}

func TestUpdateScanSuccess(t *testing.T) {
	var decoded UpdateFields
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		if r.URL.Path != "/api/scheduled_scans/42" {
			t.Errorf("expected /api/scheduled_scans/42, got %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&decoded)
		w.WriteHeader(http.StatusOK)
	})

	ok := c.UpdateScan(t.Context(), 42, SimpleStatus(StatusCompleted))
	if !ok {
		t.Fatal("expected UpdateScan to return true on 200")
	}
	if decoded.ScanStatus != StatusCompleted {
		t.Errorf("expected PATCH body to carry completed status, got %+v", decoded)
	}
}

func TestUpdateScanNon200(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if ok := c.UpdateScan(t.Context(), 42, SimpleStatus(StatusError)); ok {
		t.Fatal("expected UpdateScan to return false on non-200")
	}
}

func TestUpdateScanTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(Options{BaseURL: srv.URL, AgentID: "test-agent", Token: "secret"})
	if ok := c.UpdateScan(t.Context(), 1, SimpleStatus(StatusError)); ok {
		t.Fatal("expected UpdateScan to return false on transport error")
	}
}
