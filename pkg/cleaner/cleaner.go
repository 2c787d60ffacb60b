// pkg/cleaner/cleaner.go
package cleaner

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/tag-remediation/pkg/model"
)

// DataCleaner turns an uploaded export into the canonical table
type DataCleaner struct {
	logger *zap.Logger
	policy RepairPolicy
}

// LoadResult is a successfully loaded file
type LoadResult struct {
	Source      string
	Fingerprint string // sha256 of the raw content
	Table       *model.Table
	Repairs     []RowRepair
	Coercions   []Coercion
	Audit       []model.AuditEntry
}

// NewDataCleaner creates a new DataCleaner with the given repair policy
func NewDataCleaner(logger *zap.Logger, policy RepairPolicy) (*DataCleaner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &DataCleaner{
		logger: logger,
		policy: policy,
	}, nil
}

// Policy returns the repair policy in use
func (c *DataCleaner) Policy() RepairPolicy {
	return c.policy
}

// Load parses, repairs and types the content of one file.
// On error nothing is returned; the caller keeps whatever it had before.
func (c *DataCleaner) Load(source string, content []byte) (*LoadResult, error) {
	parsed, err := ParseRows(content, c.policy)
	if err != nil {
		c.logger.Warn("Rejected file", zap.String("source", source), zap.Error(err))
		return nil, err
	}

	table, coercions, err := BuildTable(parsed)
	if err != nil {
		c.logger.Warn("Rejected file", zap.String("source", source), zap.Error(err))
		return nil, err
	}

	sum := sha256.Sum256(content)
	result := &LoadResult{
		Source:      source,
		Fingerprint: hex.EncodeToString(sum[:]),
		Table:       table,
		Repairs:     parsed.Repairs,
		Coercions:   coercions,
	}
	result.Audit = c.auditEntries(result, parsed)

	for _, co := range coercions {
		c.logger.Debug("Cost value could not be parsed, treated as missing",
			zap.Int("line", co.Line),
			zap.String("column", co.Column),
			zap.String("value", co.Raw))
	}

	c.logger.Info("Loaded file",
		zap.String("source", source),
		zap.Int("columns", table.Schema().Len()),
		zap.Int("rows", table.Len()),
		zap.Int("repaired_rows", len(parsed.Repairs)),
		zap.Int("coerced_cells", len(coercions)))

	return result, nil
}

// auditEntries records every repair and coercion performed during the load
func (c *DataCleaner) auditEntries(result *LoadResult, parsed *ParsedRows) []model.AuditEntry {
	if len(result.Repairs) == 0 && len(result.Coercions) == 0 {
		return nil
	}

	rowByLine := make(map[int]int, len(parsed.Lines))
	for i, line := range parsed.Lines {
		rowByLine[line] = i
	}

	entries := make([]model.AuditEntry, 0, len(result.Repairs)+len(result.Coercions))
	for _, repair := range result.Repairs {
		resourceID := result.Table.Row(rowByLine[repair.Line]).Text(model.ColResourceID)
		entries = append(entries, repairEntry(result.Source, repair, resourceID))
	}
	for _, co := range result.Coercions {
		resourceID := result.Table.Row(co.Row).Text(model.ColResourceID)
		entries = append(entries, coercionEntry(result.Source, co, resourceID))
	}

	return entries
}

// Summary returns a one-line description of the load for CLI output
func (r *LoadResult) Summary() string {
	return fmt.Sprintf("%s: %d rows, %d columns, %d repaired rows, %d unparsable costs",
		r.Source, r.Table.Len(), r.Table.Schema().Len(), len(r.Repairs), len(r.Coercions))
}
