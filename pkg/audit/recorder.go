// Package audit persists the change log produced while loading and remediating
// an inventory. The log is write-only: nothing reads it back into a session.
package audit

import (
	"context"

	"github.com/David-Botos/tag-remediation/pkg/model"
)

// Recorder stores audit entries
type Recorder interface {
	Record(ctx context.Context, entries []model.AuditEntry) error
}

// NopRecorder discards every entry. It is used when no audit driver is configured.
type NopRecorder struct{}

// Record does nothing
func (NopRecorder) Record(context.Context, []model.AuditEntry) error {
	return nil
}

// MemoryRecorder keeps entries in memory, in the order they were recorded
type MemoryRecorder struct {
	Entries []model.AuditEntry
}

// Record appends the entries
func (m *MemoryRecorder) Record(_ context.Context, entries []model.AuditEntry) error {
	m.Entries = append(m.Entries, entries...)
	return nil
}
