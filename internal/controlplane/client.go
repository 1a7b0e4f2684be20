package controlplane

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client is a minimal HTTP client for the scheduling control plane. Both
// calls are best-effort from the caller's perspective: FetchJobs never fails
// the poll loop, and UpdateScan never retries — the control plane is the
// source of truth and will re-dispatch as needed.
type Client struct {
	baseURL   string
	agentID   string
	token     string
	userAgent string
	http      *http.Client
}

// Options configures a Client. InsecureSkipVerify disables TLS certificate
// verification; this is a documented deployment assumption for control
// planes presenting a private certificate and must be opted into explicitly
// — it defaults to off.
type Options struct {
	BaseURL            string
	AgentID            string
	Token              string
	UserAgent          string
	InsecureSkipVerify bool
}

// New returns a Client configured from opts.
func New(opts Options) *Client {
	var transport http.RoundTripper = http.DefaultTransport
	if opts.InsecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- opt-in deployment assumption, documented in spec
		}
	}
	return &Client{
		baseURL:   opts.BaseURL,
		agentID:   opts.AgentID,
		token:     opts.Token,
		userAgent: opts.UserAgent,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// FetchJobs issues GET {base}/api/scheduled_scans. On any non-200 response
// or transport error it logs and returns an empty slice — it never fails
// the poll loop.
func (c *Client) FetchJobs(ctx context.Context) []ScanJob {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/scheduled_scans", nil)
	if err != nil {
		slog.Error("controlplane: building FetchJobs request failed", "error", err)
		return nil
	}
	c.setCommonHeaders(req)

	res, err := c.http.Do(req)
	if err != nil {
		slog.Error("controlplane: FetchJobs request failed", "url", c.baseURL, "error", err)
		return nil
	}
	defer res.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		slog.Error("controlplane: reading FetchJobs response failed", "error", err)
		return nil
	}

	if res.StatusCode != http.StatusOK {
		slog.Error("controlplane: FetchJobs non-200 response",
			"url", c.baseURL, "status", res.StatusCode, "body", string(body))
		return nil
	}

	var jobs []ScanJob
	if err := json.Unmarshal(body, &jobs); err != nil {
		slog.Error("controlplane: decoding FetchJobs response failed", "error", err)
		return nil
	}
	return jobs
}

// UpdateScan issues PATCH {base}/api/scheduled_scans/{id} with fields as a
// compact JSON body containing only the changed fields. Returns true iff the
// response is HTTP 200. Errors are logged; the caller proceeds regardless —
// status reconciliation is best-effort by design.
func (c *Client) UpdateScan(ctx context.Context, jobID int, fields UpdateFields) bool {
	body, err := json.Marshal(fields)
	if err != nil {
		slog.Error("controlplane: encoding UpdateScan body failed", "job_id", jobID, "error", err)
		return false
	}

	url := fmt.Sprintf("%s/api/scheduled_scans/%d", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		slog.Error("controlplane: building UpdateScan request failed", "job_id", jobID, "error", err)
		return false
	}
	c.setCommonHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		slog.Error("controlplane: UpdateScan request failed", "job_id", jobID, "url", url, "error", err)
		return false
	}
	defer res.Body.Close() //nolint:errcheck

	respBody, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))

	if res.StatusCode != http.StatusOK {
		slog.Error("controlplane: UpdateScan non-200 response",
			"job_id", jobID, "status", res.StatusCode, "body", string(respBody))
		return false
	}

	slog.Info("controlplane: scan updated", "job_id", jobID, "fields", fields)
	return true
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.agentID)
	req.Header.Set("Authorization", "Token "+c.token)
}
