// pkg/cleaner/operations.go
package cleaner

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/David-Botos/tag-remediation/pkg/model"
)

// parseCost attempts to convert a cost cell to float64.
// A single pair of quotes around the number is tolerated.
func parseCost(value string) (float64, bool) {
	cleaned := strings.TrimSpace(stripEnclosingQuotes(strings.TrimSpace(value)))
	if cleaned == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// repairEntry builds the audit entry for a repaired row
func repairEntry(source string, repair RowRepair, resourceID string) model.AuditEntry {
	reason := model.ReasonShortRow
	if repair.Kind == RepairTruncated {
		reason = model.ReasonLongRow
	}

	entry := model.NewAuditEntry(model.OpRowRepair, reason)
	entry.Source = source
	entry.RowIdentifier = rowIdentifier(resourceID, repair.Line)
	entry.OriginalValue = model.StringPtr(fmt.Sprintf("%d fields", repair.Fields))
	entry.NewValue = fmt.Sprintf("%d fields", repair.Width)
	return entry
}

// coercionEntry builds the audit entry for a cost cell that became missing
func coercionEntry(source string, c Coercion, resourceID string) model.AuditEntry {
	entry := model.NewAuditEntry(model.OpCostCoercion, model.ReasonUnparsableCost)
	entry.Source = source
	entry.RowIdentifier = rowIdentifier(resourceID, c.Line)
	entry.ColumnName = c.Column
	entry.OriginalValue = model.StringPtr(c.Raw)
	entry.NewValue = ""
	return entry
}

// rowIdentifier prefers the ResourceID and falls back to the physical line
func rowIdentifier(resourceID string, line int) string {
	if resourceID != "" {
		return resourceID
	}
	return fmt.Sprintf("line:%d", line)
}
