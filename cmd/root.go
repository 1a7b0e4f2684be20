package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ctrlscan/scan-agent/internal/config"
	"github.com/ctrlscan/scan-agent/internal/controlplane"
	"github.com/ctrlscan/scan-agent/internal/history"
	"github.com/ctrlscan/scan-agent/internal/metrics"
	"github.com/ctrlscan/scan-agent/internal/poller"
	"github.com/ctrlscan/scan-agent/internal/registry"
	"github.com/ctrlscan/scan-agent/internal/supervisor"
	"github.com/ctrlscan/scan-agent/internal/worker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var cfgFile string

// rootCmd is the base command. Invoked with no subcommand, it runs the
// agent's poll loop until interrupted.
var rootCmd = &cobra.Command{
	Use:   "scan-agent",
	Short: "Distributed scan agent: polls a control plane and supervises scanner binaries",
	Long: `scan-agent is a long-running worker process that pulls scan jobs from a
central control plane, executes masscan/nmap against assigned targets,
tracks their lifecycle for pause/cancel control actions, and reports
status and result artifacts back to the control plane.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAgent,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultConfigFile,
		"agent config file path")
	rootCmd.Version = Version
	rootCmd.AddCommand(versionCmd)
}

func runAgent(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	setLogLevel(cfg.LogVerbosity)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hist, err := history.Open(ctx, cfg.History)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer hist.Close() //nolint:errcheck

	go metrics.Serve(ctx, cfg.Metrics.Port)

	cp := controlplane.New(controlplane.Options{
		BaseURL:            fmt.Sprintf("%s:%d", cfg.MasterAddress, cfg.MasterPort),
		AgentID:            cfg.ScanAgent,
		Token:              cfg.APIToken,
		UserAgent:          cfg.HTTPUserAgent,
		InsecureSkipVerify: cfg.ControlPlane.InsecureSkipVerify,
	})

	reg := registry.New()
	sup := supervisor.New(cfg, cp, reg, hist)
	pool := worker.New(ctx, cfg.NumberOfThreads, sup)

	p := poller.New(cfg, cp, reg, func(ctx context.Context, job controlplane.ScanJob) {
		pool.Enqueue(ctx, worker.Item{Job: job, Cfg: cfg})
	})

	slog.Info("scan-agent: starting", "agent", cfg.ScanAgent, "workers", cfg.NumberOfThreads)
	p.Run(ctx)
	slog.Info("scan-agent: stopped")
	return nil
}

// setLogLevel maps the agent's 1-5 verbosity scale (higher is more
// verbose) onto slog's four levels.
func setLogLevel(verbosity int) {
	var level slog.Level
	switch {
	case verbosity >= 5:
		level = slog.LevelDebug
	case verbosity == 4:
		level = slog.LevelInfo
	case verbosity == 3:
		level = slog.LevelInfo
	case verbosity == 2:
		level = slog.LevelWarn
	default:
		level = slog.LevelError
	}
	slog.SetLogLoggerLevel(level)
}
