// pkg/config/database.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/snowflakedb/gosnowflake"
)

// Audit drivers
const (
	DriverNone      = ""
	DriverPostgres  = "postgres"
	DriverSnowflake = "snowflake"
	DriverSQLite    = "sqlite"
)

// AuditConfig selects and configures the database that receives audit entries.
// Only the section for the selected driver is loaded.
type AuditConfig struct {
	Driver string
	Table  string

	Postgres  *PostgresConfig
	Snowflake *SnowflakeConfig
	SQLite    *SQLiteConfig
}

// SnowflakeConfig holds Snowflake connection parameters
type SnowflakeConfig struct {
	User          string
	Password      string
	Account       string
	Warehouse     string
	Database      string
	Schema        string
	Role          string
	Authenticator gosnowflake.AuthType

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Query timeout
	QueryTimeout time.Duration
}

// PostgresConfig holds PostgreSQL connection parameters
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Statement timeout
	StatementTimeout time.Duration
}

// SQLiteConfig holds the local SQLite audit database parameters
type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// LoadAuditConfig loads the audit sink configuration from environment variables
func LoadAuditConfig() (*AuditConfig, error) {
	cfg := &AuditConfig{
		Driver: getEnv("AUDIT_DRIVER", DriverNone),
		Table:  getEnv("AUDIT_TABLE", "tag_audit_log"),
	}

	var err error
	switch cfg.Driver {
	case DriverNone:
	case DriverPostgres:
		cfg.Postgres, err = LoadPostgresConfig()
	case DriverSnowflake:
		cfg.Snowflake, err = LoadSnowflakeConfig()
	case DriverSQLite:
		cfg.SQLite = LoadSQLiteConfig()
	default:
		return nil, fmt.Errorf("unsupported audit driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Enabled reports whether an audit driver is configured
func (c *AuditConfig) Enabled() bool {
	return c != nil && c.Driver != DriverNone
}

// Validate ensures the selected driver has its configuration
func (c *AuditConfig) Validate() error {
	if c.Table == "" {
		return errors.New("audit table name is required")
	}

	switch c.Driver {
	case DriverNone:
		return nil
	case DriverPostgres:
		if c.Postgres == nil {
			return errors.New("postgreSQL configuration is required for the postgres audit driver")
		}
	case DriverSnowflake:
		if c.Snowflake == nil {
			return errors.New("snowflake configuration is required for the snowflake audit driver")
		}
	case DriverSQLite:
		if c.SQLite == nil || c.SQLite.Path == "" {
			return errors.New("sqlite path is required for the sqlite audit driver")
		}
	default:
		return fmt.Errorf("unsupported audit driver %q", c.Driver)
	}
	return nil
}

// LoadSnowflakeConfig loads Snowflake configuration from environment variables
func LoadSnowflakeConfig() (*SnowflakeConfig, error) {
	user := os.Getenv("SNOWFLAKE_USER")
	if user == "" {
		return nil, errors.New("SNOWFLAKE_USER environment variable is required")
	}

	account := os.Getenv("SNOWFLAKE_ACCOUNT")
	if account == "" {
		return nil, errors.New("SNOWFLAKE_ACCOUNT environment variable is required")
	}

	warehouse := os.Getenv("SNOWFLAKE_WAREHOUSE")
	if warehouse == "" {
		return nil, errors.New("SNOWFLAKE_WAREHOUSE environment variable is required")
	}

	database := os.Getenv("SNOWFLAKE_DATABASE")
	if database == "" {
		return nil, errors.New("SNOWFLAKE_DATABASE environment variable is required")
	}

	authenticator := parseAuthenticator(getEnv("SNOWFLAKE_AUTHENTICATOR", "snowflake"))

	// Only password-based authenticators need a password up front
	password := os.Getenv("SNOWFLAKE_PASSWORD")
	if password == "" && (authenticator == gosnowflake.AuthTypeSnowflake || authenticator == gosnowflake.AuthTypeUsernamePasswordMFA) {
		return nil, errors.New("SNOWFLAKE_PASSWORD environment variable is required")
	}

	cfg := &SnowflakeConfig{
		User:          user,
		Password:      password,
		Account:       account,
		Warehouse:     warehouse,
		Database:      database,
		Schema:        getEnv("SNOWFLAKE_SCHEMA", "PUBLIC"),
		Role:          getEnv("SNOWFLAKE_ROLE", ""),
		Authenticator: authenticator,

		MaxOpenConns:    getEnvAsInt("SNOWFLAKE_MAX_OPEN_CONNS", 4),
		MaxIdleConns:    getEnvAsInt("SNOWFLAKE_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: time.Duration(getEnvAsInt("SNOWFLAKE_CONN_MAX_LIFETIME_SECONDS", 600)) * time.Second,
		ConnMaxIdleTime: time.Duration(getEnvAsInt("SNOWFLAKE_CONN_MAX_IDLE_TIME_SECONDS", 300)) * time.Second,
		QueryTimeout:    time.Duration(getEnvAsInt("SNOWFLAKE_QUERY_TIMEOUT_SECONDS", 60)) * time.Second,
	}

	return cfg, nil
}

// parseAuthenticator converts an authenticator name to the driver's type
func parseAuthenticator(name string) gosnowflake.AuthType {
	switch name {
	case "oauth":
		return gosnowflake.AuthTypeOAuth
	case "externalbrowser":
		return gosnowflake.AuthTypeExternalBrowser
	case "username_password_mfa":
		return gosnowflake.AuthTypeUsernamePasswordMFA
	case "jwt":
		return gosnowflake.AuthTypeJwt
	case "token":
		return gosnowflake.AuthTypeTokenAccessor
	case "okta":
		return gosnowflake.AuthTypeOkta
	default:
		return gosnowflake.AuthTypeSnowflake
	}
}

// LoadPostgresConfig loads PostgreSQL configuration from environment variables
func LoadPostgresConfig() (*PostgresConfig, error) {
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		return nil, errors.New("POSTGRES_USER environment variable is required")
	}

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		return nil, errors.New("POSTGRES_PASSWORD environment variable is required")
	}

	database := os.Getenv("POSTGRES_DB")
	if database == "" {
		return nil, errors.New("POSTGRES_DB environment variable is required")
	}

	cfg := &PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvAsInt("POSTGRES_PORT", 5432),
		User:     user,
		Password: password,
		Database: database,
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxOpenConns:     getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 5),
		MaxIdleConns:     getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime:  time.Duration(getEnvAsInt("POSTGRES_CONN_MAX_LIFETIME_SECONDS", 1800)) * time.Second,
		ConnMaxIdleTime:  time.Duration(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_TIME_SECONDS", 600)) * time.Second,
		StatementTimeout: time.Duration(getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_SECONDS", 30)) * time.Second,
	}

	return cfg, nil
}

// LoadSQLiteConfig loads the SQLite configuration from environment variables
func LoadSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        getEnv("SQLITE_PATH", "tag_audit.db"),
		BusyTimeout: time.Duration(getEnvAsInt("SQLITE_BUSY_TIMEOUT_MS", 5000)) * time.Millisecond,
	}
}

// ConnectionString returns a libpq key/value connection string.
// statement_timeout is passed through to the server as a run-time parameter.
func (c *PostgresConfig) ConnectionString() string {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)

	if c.StatementTimeout > 0 {
		connStr += fmt.Sprintf(" statement_timeout=%d", c.StatementTimeout.Milliseconds())
	}

	return connStr
}

// DSN returns the Snowflake data source name built by the driver
func (c *SnowflakeConfig) DSN() (string, error) {
	sfConfig := &gosnowflake.Config{
		Account:       c.Account,
		User:          c.User,
		Password:      c.Password,
		Database:      c.Database,
		Schema:        c.Schema,
		Warehouse:     c.Warehouse,
		Role:          c.Role,
		Authenticator: c.Authenticator,
	}

	if c.QueryTimeout > 0 {
		timeout := fmt.Sprintf("%d", int(c.QueryTimeout.Seconds()))
		sfConfig.Params = map[string]*string{
			"STATEMENT_TIMEOUT_IN_SECONDS": &timeout,
		}
	}

	dsn, err := gosnowflake.DSN(sfConfig)
	if err != nil {
		return "", fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}
	return dsn, nil
}

// DSN returns the modernc.org/sqlite data source name
func (c *SQLiteConfig) DSN() string {
	if c.BusyTimeout <= 0 {
		return c.Path
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", c.Path, c.BusyTimeout.Milliseconds())
}
