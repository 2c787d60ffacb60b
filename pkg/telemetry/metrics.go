// pkg/telemetry/metrics.go
package telemetry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/David-Botos/tag-remediation/pkg/aggregate"
	"github.com/David-Botos/tag-remediation/pkg/cleaner"
	"github.com/David-Botos/tag-remediation/pkg/model"
)

const namespace = "tagremediation"

// Subsystems
const (
	ingestSubsystem      = "ingest"
	remediationSubsystem = "remediation"
)

// Label values
const (
	ResultAccepted   = "accepted"
	ResultRejected   = "rejected"
	SnapshotOriginal = "original"
	SnapshotEdited   = "edited"
)

// Metrics tracks ingestion and remediation activity for one process.
// It keeps running totals for the end-of-run report and mirrors them into
// Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	mu     sync.Mutex
	logger *zap.Logger

	StartTime      time.Time
	FilesLoaded    int
	FilesRejected  int
	RowsLoaded     int64
	RowsRepaired   int64
	CostCoercions  int64
	EditsAccepted  int64
	EditsRejected  int64
	RowsAutoTagged int64
	ErrorCounts    map[model.ErrorCategory]int

	ingestFiles       *prometheus.CounterVec
	ingestRows        prometheus.Counter
	rowsRepaired      *prometheus.CounterVec
	costCoercions     prometheus.Counter
	edits             *prometheus.CounterVec
	autoTagged        prometheus.Counter
	untaggedResources *prometheus.GaugeVec
	untaggedCost      *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to keep them isolated.
func NewMetrics(reg prometheus.Registerer, logger *zap.Logger) (*Metrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{
		logger:      logger,
		StartTime:   time.Now(),
		ErrorCounts: make(map[model.ErrorCategory]int),
		ingestFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: ingestSubsystem,
			Name:      "files_total",
			Help:      "Uploaded files by result (accepted, rejected)",
		}, []string{"result"}),
		ingestRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: ingestSubsystem,
			Name:      "rows_total",
			Help:      "Rows loaded from accepted files",
		}),
		rowsRepaired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: ingestSubsystem,
			Name:      "rows_repaired_total",
			Help:      "Rows whose field count was repaired, by kind",
		}, []string{"kind"}),
		costCoercions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: ingestSubsystem,
			Name:      "cost_coercions_total",
			Help:      "Cost cells that failed to parse and were treated as missing",
		}),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: remediationSubsystem,
			Name:      "edits_total",
			Help:      "Proposed edits by result (accepted, rejected)",
		}, []string{"result"}),
		autoTagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: remediationSubsystem,
			Name:      "rows_auto_tagged_total",
			Help:      "Rows that transitioned to Tagged=Yes",
		}),
		untaggedResources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: remediationSubsystem,
			Name:      "untagged_resources",
			Help:      "Untagged resources per snapshot",
		}, []string{"snapshot"}),
		untaggedCost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: remediationSubsystem,
			Name:      "untagged_cost_usd",
			Help:      "Monthly cost of untagged resources per snapshot",
		}, []string{"snapshot"}),
	}

	collectors := []prometheus.Collector{
		m.ingestFiles, m.ingestRows, m.rowsRepaired, m.costCoercions,
		m.edits, m.autoTagged, m.untaggedResources, m.untaggedCost,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

// ObserveLoad records an accepted file
func (m *Metrics) ObserveLoad(result *cleaner.LoadResult) {
	if m == nil || result == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FilesLoaded++
	m.RowsLoaded += int64(result.Table.Len())
	m.RowsRepaired += int64(len(result.Repairs))
	m.CostCoercions += int64(len(result.Coercions))
	if len(result.Coercions) > 0 {
		m.ErrorCounts[model.ErrorCategoryCoercion] += len(result.Coercions)
	}

	m.ingestFiles.WithLabelValues(ResultAccepted).Inc()
	m.ingestRows.Add(float64(result.Table.Len()))
	for _, r := range result.Repairs {
		m.rowsRepaired.WithLabelValues(string(r.Kind)).Inc()
	}
	m.costCoercions.Add(float64(len(result.Coercions)))
}

// ObserveLoadError records a rejected file
func (m *Metrics) ObserveLoadError(err error) {
	if m == nil || err == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FilesRejected++
	m.ErrorCounts[model.Categorize(err)]++
	m.ingestFiles.WithLabelValues(ResultRejected).Inc()
}

// ObserveApply records the outcome of one edit batch
func (m *Metrics) ObserveApply(accepted, rejected, autoTagged int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EditsAccepted += int64(accepted)
	m.EditsRejected += int64(rejected)
	m.RowsAutoTagged += int64(autoTagged)
	if rejected > 0 {
		m.ErrorCounts[model.ErrorCategoryEditRejected] += rejected
	}

	m.edits.WithLabelValues(ResultAccepted).Add(float64(accepted))
	m.edits.WithLabelValues(ResultRejected).Add(float64(rejected))
	m.autoTagged.Add(float64(autoTagged))
}

// ObserveSnapshot publishes the untagged totals of a snapshot
func (m *Metrics) ObserveSnapshot(snapshot string, split aggregate.TagSplit) {
	if m == nil {
		return
	}
	m.untaggedResources.WithLabelValues(snapshot).Set(float64(split.UntaggedCount))
	m.untaggedCost.WithLabelValues(snapshot).Set(split.UntaggedCost)
}

// Duration returns how long the metrics have been collected
func (m *Metrics) Duration() time.Duration {
	return time.Since(m.StartTime)
}

// GenerateMetricsReport creates a plain-text summary of the run
func (m *Metrics) GenerateMetricsReport() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	totalFiles := m.FilesLoaded + m.FilesRejected
	totalEdits := m.EditsAccepted + m.EditsRejected

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`
Remediation Metrics Report
==========================
Duration:                %s

Ingestion
---------
Files Accepted:          %d (%.1f%%)
Files Rejected:          %d (%.1f%%)
Rows Loaded:             %d
Rows Repaired:           %d
Unparsable Costs:        %d

Remediation
-----------
Edits Accepted:          %d (%.1f%%)
Edits Rejected:          %d (%.1f%%)
Rows Auto-Tagged:        %d
`,
		formatDuration(m.Duration()),
		m.FilesLoaded, getPercentage(float64(m.FilesLoaded), float64(totalFiles)),
		m.FilesRejected, getPercentage(float64(m.FilesRejected), float64(totalFiles)),
		m.RowsLoaded,
		m.RowsRepaired,
		m.CostCoercions,
		m.EditsAccepted, getPercentage(float64(m.EditsAccepted), float64(totalEdits)),
		m.EditsRejected, getPercentage(float64(m.EditsRejected), float64(totalEdits)),
		m.RowsAutoTagged,
	))

	if len(m.ErrorCounts) > 0 {
		sb.WriteString("\nError Distribution\n------------------\n")
		categories := make([]model.ErrorCategory, 0, len(m.ErrorCounts))
		totalErrors := 0
		for category, count := range m.ErrorCounts {
			categories = append(categories, category)
			totalErrors += count
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
		for _, category := range categories {
			count := m.ErrorCounts[category]
			sb.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n",
				category.String(), count, getPercentage(float64(count), float64(totalErrors))))
		}
	}

	return sb.String()
}

// LogSummary writes the running totals to the logger
func (m *Metrics) LogSummary() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Session metrics",
		zap.Duration("duration", time.Since(m.StartTime)),
		zap.Int("filesLoaded", m.FilesLoaded),
		zap.Int("filesRejected", m.FilesRejected),
		zap.Int64("rowsLoaded", m.RowsLoaded),
		zap.Int64("rowsRepaired", m.RowsRepaired),
		zap.Int64("editsAccepted", m.EditsAccepted),
		zap.Int64("editsRejected", m.EditsRejected),
		zap.Int64("rowsAutoTagged", m.RowsAutoTagged))
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// getPercentage safely calculates a percentage, avoiding division by zero
func getPercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}
