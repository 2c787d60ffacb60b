// Package remediation owns the original and edited snapshots of an inventory
// and applies batches of tag edits to the edited one.
package remediation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/David-Botos/tag-remediation/pkg/model"
)

// Edit proposes a new value for one cell.
// When ResourceID is set it identifies the row and Row is ignored.
type Edit struct {
	Row        int    `json:"row" yaml:"row"`
	ResourceID string `json:"resource_id,omitempty" yaml:"resource_id,omitempty"`
	Column     string `json:"column" yaml:"column"`
	Value      string `json:"value" yaml:"value"`
}

// ApplyResult describes what one batch did to the edited snapshot
type ApplyResult struct {
	BatchID    uuid.UUID             `json:"batch_id" yaml:"batch_id"`
	Applied    int                   `json:"applied" yaml:"applied"`
	Changed    int                   `json:"changed" yaml:"changed"`
	TaggedRows []int                 `json:"tagged_rows" yaml:"tagged_rows"`
	Rejected   []model.EditRejection `json:"rejected" yaml:"rejected"`
	Audit      []model.AuditEntry    `json:"-" yaml:"-"`
}

// rowEdits collects the accepted edits of one row, in proposal order
type rowEdits struct {
	row   int
	edits []Edit
}

// ApplyEdits writes a batch of edits into table and applies the auto-tag rule.
//
// Each edit is checked on its own; a rejected edit is reported and skipped
// while the rest of the batch still applies. For every row with at least one
// accepted edit, all of that row's values are written before the row is
// evaluated: when Department, Project and Owner are all present the row's
// Tagged becomes Yes. Changed counts those transitions. Rows are never added
// or removed.
func ApplyEdits(table *model.Table, edits []Edit) ApplyResult {
	result := ApplyResult{
		BatchID:    uuid.New(),
		TaggedRows: make([]int, 0),
		Rejected:   make([]model.EditRejection, 0),
	}

	grouped := make([]rowEdits, 0)
	position := make(map[int]int)
	for _, e := range edits {
		row, reason, ok := validate(table, e)
		if !ok {
			result.Rejected = append(result.Rejected, model.EditRejection{
				Row:    row,
				Column: e.Column,
				Value:  e.Value,
				Reason: reason,
			})
			continue
		}
		p, seen := position[row]
		if !seen {
			p = len(grouped)
			position[row] = p
			grouped = append(grouped, rowEdits{row: row})
		}
		grouped[p].edits = append(grouped[p].edits, e)
	}

	for _, g := range grouped {
		resourceID := table.Row(g.row).Text(model.ColResourceID)

		// write every accepted value for the row before evaluating it
		for _, e := range g.edits {
			before := table.Row(g.row).Get(e.Column)
			after := model.Text(strings.TrimSpace(e.Value))
			if err := table.Set(g.row, e.Column, after); err != nil {
				result.Rejected = append(result.Rejected, model.EditRejection{
					Row: g.row, Column: e.Column, Value: e.Value, Reason: model.RejectUnknownColumn,
				})
				continue
			}
			result.Applied++
			result.Audit = append(result.Audit, editEntry(resourceID, g.row, e.Column, before, after))
		}

		if !accountable(table.Row(g.row)) {
			continue
		}
		before := table.Row(g.row).Get(model.ColTagged)
		if err := table.Set(g.row, model.ColTagged, model.Text(model.TaggedYes)); err != nil {
			continue
		}
		result.Changed++
		result.TaggedRows = append(result.TaggedRows, g.row)
		result.Audit = append(result.Audit, autoTagEntry(resourceID, g.row, before))
	}

	return result
}

// validate resolves the row of an edit and checks that it may be applied
func validate(table *model.Table, e Edit) (int, model.RejectReason, bool) {
	row := e.Row
	if e.ResourceID != "" {
		i, ok := table.Lookup(e.ResourceID)
		if !ok {
			return -1, model.RejectUnresolvedName, false
		}
		row = i
	}

	if row < 0 || row >= table.Len() {
		return row, model.RejectUnknownRow, false
	}
	if !table.Schema().Has(e.Column) {
		return row, model.RejectUnknownColumn, false
	}
	if !model.IsEditable(e.Column) {
		return row, model.RejectNotEditable, false
	}
	if table.Row(row).Text(model.ColTagged) != model.TaggedNo {
		return row, model.RejectNotUntagged, false
	}
	return row, "", true
}

// accountable reports whether the accountability fields of a row are all present.
// A field whose column is absent from the schema does not block tagging.
func accountable(row model.Row) bool {
	for _, f := range model.AccountabilityFields {
		if row.Has(f) && row.Get(f).IsMissing() {
			return false
		}
	}
	return true
}

func editEntry(resourceID string, row int, column string, before, after model.Cell) model.AuditEntry {
	entry := model.NewAuditEntry(model.OpTagEdit, model.ReasonManualEdit)
	entry.RowIdentifier = rowIdentifier(resourceID, row)
	entry.ColumnName = column
	if !before.IsMissing() {
		entry.OriginalValue = model.StringPtr(before.String())
	}
	entry.NewValue = after.String()
	return entry
}

func autoTagEntry(resourceID string, row int, before model.Cell) model.AuditEntry {
	entry := model.NewAuditEntry(model.OpAutoTag, model.ReasonTagsComplete)
	entry.RowIdentifier = rowIdentifier(resourceID, row)
	entry.ColumnName = model.ColTagged
	if !before.IsMissing() {
		entry.OriginalValue = model.StringPtr(before.String())
	}
	entry.NewValue = model.TaggedYes
	return entry
}

func rowIdentifier(resourceID string, row int) string {
	if resourceID != "" {
		return resourceID
	}
	return fmt.Sprintf("row:%d", row)
}
