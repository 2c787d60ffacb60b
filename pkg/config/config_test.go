package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the loaders read so host settings cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REPAIR_TRAILING_COLUMNS", "LISTEN_ADDR", "LOG_LEVEL", "LOG_FORMAT",
		"AUDIT_DRIVER", "AUDIT_TABLE", "SQLITE_PATH", "SQLITE_BUSY_TIMEOUT_MS",
		"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_HOST", "POSTGRES_PORT",
		"SNOWFLAKE_USER", "SNOWFLAKE_PASSWORD", "SNOWFLAKE_ACCOUNT", "SNOWFLAKE_WAREHOUSE",
		"SNOWFLAKE_DATABASE", "SNOWFLAKE_AUTHENTICATOR",
	} {
		t.Setenv(key, "")
	}
}

// inTempDir runs the test from an empty directory so no .env is picked up
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	inTempDir(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.RepairTrailingColumns)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	require.NotNil(t, cfg.Audit)
	assert.False(t, cfg.Audit.Enabled())
	assert.Equal(t, "tag_audit_log", cfg.Audit.Table)
	assert.Nil(t, cfg.Audit.Postgres)
	assert.Nil(t, cfg.Audit.Snowflake)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	inTempDir(t)
	t.Setenv("REPAIR_TRAILING_COLUMNS", "2")
	t.Setenv("LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("AUDIT_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/audit.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.RepairTrailingColumns)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.True(t, cfg.Audit.Enabled())
	require.NotNil(t, cfg.Audit.SQLite)
	assert.Equal(t, "/tmp/audit.db", cfg.Audit.SQLite.Path)
	assert.Equal(t, "file:/tmp/audit.db?_pragma=busy_timeout(5000)", cfg.Audit.SQLite.DSN())
}

func TestLoadConfig_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LISTEN_ADDR=:7070\nLOG_LEVEL=warn\n"), 0o600))
	// Variables already in the environment take precedence over .env
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "negative trailing columns", key: "REPAIR_TRAILING_COLUMNS", value: "-1", wantErr: "cannot be negative"},
		{name: "log level", key: "LOG_LEVEL", value: "loud", wantErr: "unsupported log level"},
		{name: "log format", key: "LOG_FORMAT", value: "xml", wantErr: "unsupported log format"},
		{name: "audit driver", key: "AUDIT_DRIVER", value: "mongo", wantErr: "unsupported audit driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			inTempDir(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvAsInt_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("TEST_INT", "seven")
	assert.Equal(t, 7, getEnvAsInt("TEST_INT", 7))

	t.Setenv("TEST_INT", "11")
	assert.Equal(t, 11, getEnvAsInt("TEST_INT", 7))
}

func TestLoadPostgresConfig(t *testing.T) {
	clearEnv(t)

	_, err := LoadPostgresConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_USER")

	t.Setenv("POSTGRES_USER", "auditor")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "finops")
	t.Setenv("POSTGRES_HOST", "db.internal")

	cfg, err := LoadPostgresConfig()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.StatementTimeout)
	assert.Equal(t,
		"host=db.internal port=5432 user=auditor password=secret dbname=finops sslmode=disable statement_timeout=30000",
		cfg.ConnectionString())
}

func TestLoadSnowflakeConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("SNOWFLAKE_USER", "auditor")
	t.Setenv("SNOWFLAKE_ACCOUNT", "acme-xy12345")
	t.Setenv("SNOWFLAKE_WAREHOUSE", "COMPUTE_WH")
	t.Setenv("SNOWFLAKE_DATABASE", "FINOPS")

	_, err := LoadSnowflakeConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SNOWFLAKE_PASSWORD")

	// Browser SSO does not need a password
	t.Setenv("SNOWFLAKE_AUTHENTICATOR", "externalbrowser")
	cfg, err := LoadSnowflakeConfig()
	require.NoError(t, err)
	assert.Equal(t, gosnowflake.AuthTypeExternalBrowser, cfg.Authenticator)
	assert.Equal(t, "PUBLIC", cfg.Schema)

	t.Setenv("SNOWFLAKE_AUTHENTICATOR", "")
	t.Setenv("SNOWFLAKE_PASSWORD", "secret")
	cfg, err = LoadSnowflakeConfig()
	require.NoError(t, err)
	assert.Equal(t, gosnowflake.AuthTypeSnowflake, cfg.Authenticator)

	dsn, err := cfg.DSN()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "auditor:secret@"), dsn)
	assert.Contains(t, dsn, "warehouse=COMPUTE_WH")
	assert.Contains(t, dsn, "STATEMENT_TIMEOUT_IN_SECONDS=60")
}

func TestAuditConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AuditConfig
		wantErr bool
	}{
		{name: "disabled", cfg: AuditConfig{Table: "t"}},
		{name: "missing table", cfg: AuditConfig{}, wantErr: true},
		{name: "postgres without section", cfg: AuditConfig{Driver: DriverPostgres, Table: "t"}, wantErr: true},
		{name: "snowflake without section", cfg: AuditConfig{Driver: DriverSnowflake, Table: "t"}, wantErr: true},
		{name: "sqlite without path", cfg: AuditConfig{Driver: DriverSQLite, Table: "t", SQLite: &SQLiteConfig{}}, wantErr: true},
		{name: "sqlite", cfg: AuditConfig{Driver: DriverSQLite, Table: "t", SQLite: &SQLiteConfig{Path: ":memory:"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
