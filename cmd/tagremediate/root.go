package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/David-Botos/tag-remediation/pkg/audit"
	"github.com/David-Botos/tag-remediation/pkg/cleaner"
	"github.com/David-Botos/tag-remediation/pkg/config"
	"github.com/David-Botos/tag-remediation/pkg/connector"
	"github.com/David-Botos/tag-remediation/pkg/remediation"
	"github.com/David-Botos/tag-remediation/pkg/telemetry"
)

// cli carries what every subcommand needs once the root has run
type cli struct {
	cfg    *config.Config
	logger *zap.Logger

	logLevel      string
	metricsReport bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "tagremediate",
		Short: "Audit and remediate resource tagging in a cloud cost export",
		Long: `tagremediate loads a cloud inventory export, reports tag compliance and
cost accountability, and applies tag edits to a working copy of the data.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = c.logLevel
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}

			c.cfg = cfg
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override LOG_LEVEL (debug|info|warn|error)")
	root.PersistentFlags().BoolVar(&c.metricsReport, "metrics-report", false, "Print a plain-text metrics report to stderr when the command finishes")

	root.AddCommand(
		c.newReportCmd(),
		c.newRemediateCmd(),
		c.newServeCmd(),
	)
	return root
}

// newLogger builds the zap logger for the given level and format
func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	switch format {
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// newCleaner builds a DataCleaner with the configured repair policy
func (c *cli) newCleaner() (*cleaner.DataCleaner, error) {
	policy := cleaner.DefaultRepairPolicy()
	policy.TrailingColumns = c.cfg.RepairTrailingColumns
	return cleaner.NewDataCleaner(c.logger.Named("cleaner"), policy)
}

// loadFile reads and loads an export from disk
func (c *cli) loadFile(dataCleaner *cleaner.DataCleaner, path string) (*cleaner.LoadResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	result, err := dataCleaner.Load(filepath.Base(path), content)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Loaded file", zap.String("summary", result.Summary()))
	return result, nil
}

// openRecorder connects the configured audit sink. With no driver configured
// it returns a NopRecorder and a no-op closer.
func (c *cli) openRecorder(ctx context.Context) (audit.Recorder, func(), error) {
	conn, err := connector.Open(ctx, c.cfg.Audit, c.logger)
	if errors.Is(err, connector.ErrAuditDisabled) {
		c.logger.Debug("Audit sink disabled")
		return audit.NopRecorder{}, func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if err := conn.Validate(ctx); err != nil {
		c.logger.Warn("Audit database validation failed", zap.Error(err))
	}

	recorder, err := audit.NewSQLRecorder(ctx, conn.DB(), c.cfg.Audit.Table, c.logger.Named("audit"))
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	c.logger.Info("Audit sink ready",
		zap.String("driver", c.cfg.Audit.Driver),
		zap.String("database", conn.Name()),
		zap.String("table", recorder.Table()))

	closer := func() {
		if err := conn.Close(); err != nil {
			c.logger.Warn("Failed to close audit database", zap.Error(err))
		}
	}
	return recorder, closer, nil
}

// newSession wires a session to the audit sink and metrics
func (c *cli) newSession(recorder audit.Recorder, metrics *telemetry.Metrics) *remediation.Session {
	return remediation.NewSession(c.logger.Named("session"),
		remediation.WithRecorder(recorder),
		remediation.WithMetrics(metrics))
}

// newMetrics registers the metrics on a fresh registry
func (c *cli) newMetrics() (*telemetry.Metrics, *prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(registry, c.logger.Named("metrics"))
	if err != nil {
		return nil, nil, err
	}
	return metrics, registry, nil
}

// finishMetrics logs the run totals and, with --metrics-report, writes the
// plain-text report to the command's stderr
func (c *cli) finishMetrics(cmd *cobra.Command, metrics *telemetry.Metrics) {
	metrics.LogSummary()
	if c.metricsReport {
		fmt.Fprint(cmd.ErrOrStderr(), metrics.GenerateMetricsReport())
	}
}
