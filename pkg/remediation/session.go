// pkg/remediation/session.go
package remediation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/tag-remediation/pkg/aggregate"
	"github.com/David-Botos/tag-remediation/pkg/audit"
	"github.com/David-Botos/tag-remediation/pkg/cleaner"
	"github.com/David-Botos/tag-remediation/pkg/model"
	"github.com/David-Botos/tag-remediation/pkg/telemetry"
)

// Session holds the two snapshots of the file loaded in one interactive session.
//
// original is set once per file and never mutated. edited starts as a copy and
// is only changed by Apply. A Session is not safe for concurrent use; callers
// that share one must serialize access.
type Session struct {
	ID uuid.UUID

	logger   *zap.Logger
	recorder audit.Recorder
	metrics  *telemetry.Metrics

	source      string
	fingerprint string
	original    *model.Table
	edited      *model.Table
}

// Option configures a Session
type Option func(*Session)

// WithRecorder sends every audit entry to r
func WithRecorder(r audit.Recorder) Option {
	return func(s *Session) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithMetrics reports session activity to m
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// NewSession creates an empty session
func NewSession(logger *zap.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		ID:       uuid.New(),
		logger:   logger,
		recorder: audit.NopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize publishes a loaded file as the session's snapshots.
// Loading the same content again keeps the current snapshots, including any
// edits, and returns false. A different file replaces both snapshots.
func (s *Session) Initialize(ctx context.Context, result *cleaner.LoadResult) (bool, error) {
	if result == nil || result.Table == nil {
		return false, errors.New("load result cannot be nil")
	}
	if s.Loaded() && s.fingerprint == result.Fingerprint {
		s.logger.Debug("File already loaded, keeping session state",
			zap.String("source", result.Source),
			zap.String("fingerprint", result.Fingerprint))
		return false, nil
	}

	replaced := s.Loaded()
	s.source = result.Source
	s.fingerprint = result.Fingerprint
	s.original = result.Table.Clone()
	s.edited = result.Table.Clone()

	s.logger.Info("Initialized session",
		zap.String("session", s.ID.String()),
		zap.String("source", s.source),
		zap.Int("rows", s.original.Len()),
		zap.Bool("replaced", replaced))

	s.metrics.ObserveSnapshot(telemetry.SnapshotOriginal, aggregate.CostByTag(s.original))
	s.metrics.ObserveSnapshot(telemetry.SnapshotEdited, aggregate.CostByTag(s.edited))
	s.record(ctx, result.Audit)

	return true, nil
}

// Loaded reports whether a file has been initialized
func (s *Session) Loaded() bool {
	return s.original != nil
}

// Source returns the name of the loaded file
func (s *Session) Source() string {
	return s.source
}

// Fingerprint returns the content hash of the loaded file
func (s *Session) Fingerprint() string {
	return s.fingerprint
}

// Original returns the snapshot as loaded, or nil before Initialize
func (s *Session) Original() model.View {
	if s.original == nil {
		return nil
	}
	return s.original
}

// Edited returns the remediated snapshot, or nil before Initialize
func (s *Session) Edited() model.View {
	if s.edited == nil {
		return nil
	}
	return s.edited
}

// Apply writes a batch of edits into the edited snapshot.
// An empty batch changes nothing.
func (s *Session) Apply(ctx context.Context, edits []Edit) (ApplyResult, error) {
	if !s.Loaded() {
		return ApplyResult{}, model.ErrNoSession
	}

	result := ApplyEdits(s.edited, edits)

	for _, r := range result.Rejected {
		s.logger.Debug("Edit rejected",
			zap.Int("row", r.Row),
			zap.String("column", r.Column),
			zap.String("reason", string(r.Reason)))
	}
	s.logger.Info("Applied edit batch",
		zap.String("batch", result.BatchID.String()),
		zap.Int("proposed", len(edits)),
		zap.Int("applied", result.Applied),
		zap.Int("rejected", len(result.Rejected)),
		zap.Int("autoTagged", result.Changed))

	s.metrics.ObserveApply(result.Applied, len(result.Rejected), result.Changed)
	s.metrics.ObserveSnapshot(telemetry.SnapshotEdited, aggregate.CostByTag(s.edited))
	s.record(ctx, result.Audit)

	return result, nil
}

// Compare reports the remediation impact of the edited snapshot
func (s *Session) Compare() (CompareReport, error) {
	if !s.Loaded() {
		return CompareReport{}, model.ErrNoSession
	}
	return Compare(s.original, s.edited), nil
}

// record stamps the entries with this session and sends them to the recorder.
// A recorder failure is logged and does not undo the change.
func (s *Session) record(ctx context.Context, entries []model.AuditEntry) {
	if len(entries) == 0 {
		return
	}

	stamped := make([]model.AuditEntry, len(entries))
	for i, e := range entries {
		e.SessionID = s.ID
		if e.Source == "" {
			e.Source = s.source
		}
		stamped[i] = e
	}

	if err := s.recorder.Record(ctx, stamped); err != nil {
		s.logger.Error("Failed to record audit entries",
			zap.Int("count", len(stamped)),
			zap.Error(err))
	}
}
