package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultConfigFile is used when the `-c` flag is not supplied.
const DefaultConfigFile = "agent_config.json"

// Load reads the agent config file at path and returns a populated Config.
// Unlike an interactive tool, there is no default-on-disk fallback: a
// missing or malformed config file is fatal at startup (spec: §7).
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetConfigFile(path)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(filepath.Dir(filepath.Clean(cfg.ScanResultsDir)), "agent_history.db")
	}

	return &cfg, nil
}

// setDefaults populates viper with the handful of agent defaults that are
// safe to assume when a config file omits them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_verbosity", 3)
	v.SetDefault("number_of_threads", 3)
	v.SetDefault("callback_interval_in_seconds", 30)
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("metrics.port", 0)
}

// validate enforces the handful of fields the agent cannot run without.
func (c *Config) validate() error {
	if c.MasterAddress == "" {
		return fmt.Errorf("master_address is required")
	}
	if c.ScanAgent == "" {
		return fmt.Errorf("scan_agent is required")
	}
	if c.TargetFilesDir == "" || c.ScanResultsDir == "" {
		return fmt.Errorf("target_files_dir and scan_results_dir are required")
	}
	if len(c.SupportedScanBinaries) == 0 {
		return fmt.Errorf("supported_scan_binaries must list at least one binary")
	}
	if c.LogVerbosity < 1 || c.LogVerbosity > 5 {
		return fmt.Errorf("log_verbosity must be between 1 and 5, got %d", c.LogVerbosity)
	}
	if c.NumberOfThreads < 1 {
		return fmt.Errorf("number_of_threads must be at least 1")
	}
	return nil
}
