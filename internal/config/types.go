package config

import "path/filepath"

// Config is the root configuration for the scan agent. It is read once from
// a JSON file at startup (see Load) and never mutated afterwards; every
// ScanJob dispatched during the process lifetime is paired with the same
// Config snapshot.
type Config struct {
	MasterAddress         string   `mapstructure:"master_address"               json:"master_address"`
	MasterPort            int      `mapstructure:"master_port"                  json:"master_port"`
	ScanAgent             string   `mapstructure:"scan_agent"                   json:"scan_agent"`
	APIToken              string   `mapstructure:"api_token"                    json:"api_token"` // #nosec G101 -- config field, not a hardcoded credential
	HTTPUserAgent         string   `mapstructure:"http_useragent"               json:"http_useragent"`
	ScanResultsDir        string   `mapstructure:"scan_results_dir"             json:"scan_results_dir"`
	TargetFilesDir        string   `mapstructure:"target_files_dir"             json:"target_files_dir"`
	SupportedScanBinaries []string `mapstructure:"supported_scan_binaries"      json:"supported_scan_binaries"`
	LogVerbosity          int      `mapstructure:"log_verbosity"                json:"log_verbosity"`
	NumberOfThreads       int      `mapstructure:"number_of_threads"            json:"number_of_threads"`
	CallbackIntervalSec   int      `mapstructure:"callback_interval_in_seconds" json:"callback_interval_in_seconds"`

	// History controls the optional local job-history audit store. It is
	// never read back to resume or reconstruct scan state — append-only
	// diagnostics only, so it does not conflict with the "no job
	// persistence across restarts" non-goal.
	History HistoryConfig `mapstructure:"history" json:"history"`

	// Metrics controls the optional localhost Prometheus endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics"`

	// ControlPlane controls the HTTP client talking to the control plane.
	ControlPlane ControlPlaneConfig `mapstructure:"control_plane" json:"control_plane"`
}

// ControlPlaneConfig configures the HTTP client used to reach the control
// plane. TLS verification defaults to on; InsecureSkipVerify is an explicit
// per-deployment opt-out, never a hardcoded global.
type ControlPlaneConfig struct {
	// InsecureSkipVerify disables TLS certificate verification. Defaults to
	// false; set true only for control planes presenting a private
	// certificate the agent's trust store doesn't carry.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" json:"insecure_skip_verify"`
}

// HistoryConfig selects the backend for the local job-history audit store.
type HistoryConfig struct {
	// Driver is "sqlite" (default), "mysql", or "" to disable the store.
	Driver string `mapstructure:"driver" json:"driver"`
	// Path is the SQLite file path. Defaults to agent_history.db next to
	// ScanResultsDir when unset.
	Path string `mapstructure:"path" json:"path"`
	// DSN is the MySQL data source name (used when Driver == "mysql").
	DSN string `mapstructure:"dsn" json:"dsn"`
}

// MetricsConfig controls the localhost-only Prometheus metrics endpoint.
type MetricsConfig struct {
	// Port is the localhost port to serve /metrics on. 0 disables it.
	Port int `mapstructure:"port" json:"port"`
}

// PendingDir, CompleteDir and CancelledDir return the three sibling result
// directories under ScanResultsDir. The agent assumes they already exist.
func (c *Config) PendingDir() string   { return filepath.Join(c.ScanResultsDir, "pending") }
func (c *Config) CompleteDir() string  { return filepath.Join(c.ScanResultsDir, "complete") }
func (c *Config) CancelledDir() string { return filepath.Join(c.ScanResultsDir, "cancelled") }

// SupportsBinary reports whether name is in the configured allowlist.
func (c *Config) SupportsBinary(name string) bool {
	for _, b := range c.SupportedScanBinaries {
		if b == name {
			return true
		}
	}
	return false
}
