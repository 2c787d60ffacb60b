// pkg/audit/sql.go
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/tag-remediation/pkg/model"
)

// DefaultTable is the audit table name used when none is configured
const DefaultTable = "tag_audit_log"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLRecorder writes audit entries to a SQL table.
// Every column is TEXT so the same table works on Postgres, Snowflake and SQLite.
type SQLRecorder struct {
	db     *sqlx.DB
	table  string
	logger *zap.Logger
}

// NewSQLRecorder creates a recorder and ensures the audit table exists
func NewSQLRecorder(ctx context.Context, db *sqlx.DB, table string, logger *zap.Logger) (*SQLRecorder, error) {
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid audit table name %q", table)
	}

	r := &SQLRecorder{
		db:     db,
		table:  table,
		logger: logger,
	}

	if err := r.setupAuditTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to setup audit table: %w", err)
	}

	return r, nil
}

// Table returns the audit table name
func (r *SQLRecorder) Table() string {
	return r.table
}

// setupAuditTable ensures the audit table exists
func (r *SQLRecorder) setupAuditTable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			source TEXT NOT NULL,
			row_identifier TEXT NOT NULL,
			column_name TEXT NOT NULL,
			original_value TEXT,
			new_value TEXT NOT NULL,
			operation TEXT NOT NULL,
			reason TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		)
	`, r.table)
	if _, err := r.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}

	r.logger.Info("Ensured audit table exists", zap.String("table", r.table))
	return nil
}

// Record inserts the entries in one transaction
func (r *SQLRecorder) Record(ctx context.Context, entries []model.AuditEntry) (err error) {
	if len(entries) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.NamedError("cause", err))
			}
		}
	}()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(fmt.Sprintf(`
		INSERT INTO %s
		(id, session_id, source, row_identifier, column_name, original_value,
		 new_value, operation, reason, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.table)))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err = stmt.ExecContext(ctx,
			e.ID.String(),
			e.SessionID.String(),
			e.Source,
			e.RowIdentifier,
			e.ColumnName,
			toNullableString(e.OriginalValue),
			e.NewValue,
			e.Operation,
			e.Reason,
			e.RecordedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to insert audit entry: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug("Recorded audit entries", zap.Int("count", len(entries)))
	return nil
}

// Count returns the number of stored entries
func (r *SQLRecorder) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", r.table)); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return n, nil
}

func toNullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
