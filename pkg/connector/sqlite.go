// pkg/connector/sqlite.go
package connector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/David-Botos/tag-remediation/pkg/config"
)

// SQLiteConnector implements the DatabaseConnector interface for a local
// SQLite file
type SQLiteConnector struct {
	baseConnector
	cfg *config.SQLiteConfig
}

// NewSQLiteConnector opens (creating if needed) the SQLite database at cfg.Path
func NewSQLiteConnector(ctx context.Context, cfg *config.SQLiteConfig, logger *zap.Logger) (*SQLiteConnector, error) {
	logger = logger.Named("sqlite-connector")
	logger.Info("Opening SQLite database", zap.String("path", cfg.Path))

	// A single connection avoids SQLITE_BUSY between pooled writers
	db, err := openPool(ctx, "sqlite", cfg.DSN(), poolSettings{maxOpen: 1, maxIdle: 1}, 5*time.Second)
	if err != nil {
		return nil, err
	}

	connector := &SQLiteConnector{
		baseConnector: baseConnector{db: db, logger: logger, name: cfg.Path},
		cfg:           cfg,
	}

	LogConnectionStats(logger, cfg.Path, db.DB)
	return connector, nil
}

// Validate reports the SQLite library version
func (c *SQLiteConnector) Validate(ctx context.Context) error {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to query SQLite version: %w", err)
	}
	c.logger.Info("Connected to SQLite",
		zap.String("path", c.cfg.Path),
		zap.String("version", version))
	return nil
}
