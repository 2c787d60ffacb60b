// pkg/connector/factory.go
package connector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/tag-remediation/pkg/config"
)

// ErrAuditDisabled is returned by Open when no audit driver is configured
var ErrAuditDisabled = errors.New("audit database is not configured")

// Open connects to the audit database selected by cfg.Driver
func Open(ctx context.Context, cfg *config.AuditConfig, logger *zap.Logger) (DatabaseConnector, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if !cfg.Enabled() {
		return nil, ErrAuditDisabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audit configuration: %w", err)
	}

	logger.Info("Creating audit database connector", zap.String("driver", cfg.Driver))

	var (
		conn DatabaseConnector
		err  error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		conn, err = NewPostgresConnector(ctx, cfg.Postgres, logger)
	case config.DriverSnowflake:
		conn, err = NewSnowflakeConnector(ctx, cfg.Snowflake, logger)
	case config.DriverSQLite:
		conn, err = NewSQLiteConnector(ctx, cfg.SQLite, logger)
	default:
		return nil, fmt.Errorf("unsupported audit driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s connector: %w", cfg.Driver, err)
	}

	return conn, nil
}
