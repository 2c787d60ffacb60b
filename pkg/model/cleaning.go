// pkg/model/cleaning.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit operations
const (
	OpRowRepair    = "row_repair"
	OpCostCoercion = "cost_coercion"
	OpTagEdit      = "tag_edit"
	OpAutoTag      = "auto_tag"
)

// Audit reasons
const (
	ReasonShortRow       = "short_row_right_aligned"
	ReasonLongRow        = "long_row_truncated"
	ReasonUnparsableCost = "unparsable_cost"
	ReasonManualEdit     = "manual_remediation"
	ReasonTagsComplete   = "accountability_fields_complete"
)

// AuditEntry represents a single change made to the data, either while
// loading a file or while remediating it
type AuditEntry struct {
	ID            uuid.UUID // Unique entry ID
	SessionID     uuid.UUID // Session that produced the change
	Source        string    // File name or upload label
	RowIdentifier string    // ResourceID when known, otherwise "line:N" or "row:N"
	ColumnName    string    // Column that changed; empty for whole-row repairs
	OriginalValue *string   // Value before the change (nil when absent)
	NewValue      string    // Value after the change
	Operation     string    // Kind of change (e.g. "row_repair")
	Reason        string    // Why it happened (e.g. "short_row_right_aligned")
	RecordedAt    time.Time // When the change was made
}

// NewAuditEntry creates an entry stamped with a fresh ID and the current time
func NewAuditEntry(operation, reason string) AuditEntry {
	return AuditEntry{
		ID:         uuid.New(),
		Operation:  operation,
		Reason:     reason,
		RecordedAt: time.Now().UTC(),
	}
}

// StringPtr returns a pointer to s, for OriginalValue
func StringPtr(s string) *string {
	return &s
}
