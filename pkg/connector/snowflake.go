// pkg/connector/snowflake.go
package connector

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/David-Botos/tag-remediation/pkg/config"
)

// SnowflakeConnector holds an audit sink connection to Snowflake
type SnowflakeConnector struct {
	baseConnector
	cfg *config.SnowflakeConfig
}

// NewSnowflakeConnector connects to Snowflake using the DSN built from cfg
func NewSnowflakeConnector(ctx context.Context, cfg *config.SnowflakeConfig, logger *zap.Logger) (*SnowflakeConnector, error) {
	logger = logger.Named("snowflake-connector")

	// Credentials stay out of the log
	logger.Info("Connecting to Snowflake audit sink",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema),
		zap.String("warehouse", cfg.Warehouse),
		zap.String("authenticator", cfg.Authenticator.String()))

	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := openPool(ctx, "snowflake", dsn, poolSettings{
		maxOpen:     cfg.MaxOpenConns,
		maxIdle:     cfg.MaxIdleConns,
		maxLifetime: cfg.ConnMaxLifetime,
		maxIdleTime: cfg.ConnMaxIdleTime,
	}, 10*time.Second)
	if err != nil {
		return nil, err
	}

	name := cfg.Database + "." + cfg.Schema
	LogConnectionStats(logger, name, db.DB)
	return &SnowflakeConnector{
		baseConnector: baseConnector{db: db, logger: logger, name: name},
		cfg:           cfg,
	}, nil
}

// Validate checks that the session landed in the configured database and
// schema with a warehouse to run the audit inserts
func (c *SnowflakeConnector) Validate(ctx context.Context) error {
	var role, database, schema, warehouse *string
	err := c.db.QueryRowContext(ctx,
		"SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_SCHEMA(), CURRENT_WAREHOUSE()").Scan(
		&role, &database, &schema, &warehouse)
	if err != nil {
		return fmt.Errorf("failed to verify Snowflake session: %w", err)
	}

	c.logger.Info("Connected to Snowflake",
		zap.String("role", deref(role)),
		zap.String("database", deref(database)),
		zap.String("schema", deref(schema)),
		zap.String("warehouse", deref(warehouse)))

	if !strings.EqualFold(deref(database), c.cfg.Database) {
		return fmt.Errorf("connected to wrong database: %s (expected: %s)", deref(database), c.cfg.Database)
	}
	if !strings.EqualFold(deref(schema), c.cfg.Schema) {
		return fmt.Errorf("connected to wrong schema: %s (expected: %s)", deref(schema), c.cfg.Schema)
	}
	if deref(warehouse) == "" {
		return fmt.Errorf("no active warehouse for role %s", deref(role))
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
