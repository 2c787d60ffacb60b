// pkg/connector/postgres.go
package connector

import (
	"context"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/tag-remediation/pkg/config"
)

// PostgresConnector holds an audit sink connection to PostgreSQL
type PostgresConnector struct {
	baseConnector
	cfg *config.PostgresConfig
}

// NewPostgresConnector connects to PostgreSQL. statement_timeout is part of
// the connection string so every pooled connection carries it.
func NewPostgresConnector(ctx context.Context, cfg *config.PostgresConfig, logger *zap.Logger) (*PostgresConnector, error) {
	logger = logger.Named("postgres-connector")
	logger.Info("Connecting to PostgreSQL audit sink",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User),
		zap.Duration("statement_timeout", cfg.StatementTimeout))

	db, err := openPool(ctx, "postgres", cfg.ConnectionString(), poolSettings{
		maxOpen:     cfg.MaxOpenConns,
		maxIdle:     cfg.MaxIdleConns,
		maxLifetime: cfg.ConnMaxLifetime,
		maxIdleTime: cfg.ConnMaxIdleTime,
	}, 5*time.Second)
	if err != nil {
		return nil, err
	}

	LogConnectionStats(logger, cfg.Database, db.DB)
	return &PostgresConnector{
		baseConnector: baseConnector{db: db, logger: logger, name: cfg.Database},
		cfg:           cfg,
	}, nil
}

// Validate checks the server identity and that the connected role may create
// the audit table in the current schema
func (c *PostgresConnector) Validate(ctx context.Context) error {
	var identity struct {
		Version   string `db:"version"`
		User      string `db:"username"`
		Schema    string `db:"schema_name"`
		CanCreate bool   `db:"can_create"`
	}
	err := c.db.GetContext(ctx, &identity, `
		SELECT version() AS version,
		       current_user AS username,
		       current_schema() AS schema_name,
		       has_schema_privilege(current_schema(), 'CREATE') AS can_create`)
	if err != nil {
		return fmt.Errorf("failed to query PostgreSQL identity: %w", err)
	}

	c.logger.Info("Connected to PostgreSQL",
		zap.String("version", identity.Version),
		zap.String("user", identity.User),
		zap.String("schema", identity.Schema))

	if !identity.CanCreate {
		return fmt.Errorf("role %s cannot create tables in schema %s", identity.User, identity.Schema)
	}
	return nil
}
