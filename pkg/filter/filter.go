// Package filter projects a table onto the rows matching a set of exact-match predicates.
package filter

import (
	"sort"

	"github.com/David-Botos/tag-remediation/pkg/model"
)

// All disables a predicate
const All = "All"

// Columns that accept a predicate, in the order they are applied
var Columns = []string{
	model.ColService,
	model.ColRegion,
	model.ColDepartment,
	model.ColEnvironment,
	model.ColTagged,
}

// Predicates holds one exact-match value per filterable column.
// An empty value or "All" means no constraint.
type Predicates struct {
	Service     string `json:"service,omitempty" yaml:"service,omitempty" form:"service"`
	Region      string `json:"region,omitempty" yaml:"region,omitempty" form:"region"`
	Department  string `json:"department,omitempty" yaml:"department,omitempty" form:"department"`
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty" form:"environment"`
	Tagged      string `json:"tagged,omitempty" yaml:"tagged,omitempty" form:"tagged"`
}

// Untagged returns predicates selecting Tagged = "No"
func Untagged() Predicates {
	return Predicates{Tagged: model.TaggedNo}
}

// value returns the predicate for a column
func (p Predicates) value(column string) string {
	switch column {
	case model.ColService:
		return p.Service
	case model.ColRegion:
		return p.Region
	case model.ColDepartment:
		return p.Department
	case model.ColEnvironment:
		return p.Environment
	case model.ColTagged:
		return p.Tagged
	}
	return ""
}

// active returns the predicates that constrain a column present in the schema
func (p Predicates) active(schema model.Schema) []clause {
	var clauses []clause
	for _, column := range Columns {
		v := p.value(column)
		if v == "" || v == All {
			continue
		}
		if !schema.Has(column) {
			// Predicates only apply to columns present in the schema
			continue
		}
		clauses = append(clauses, clause{column: column, want: v})
	}
	return clauses
}

type clause struct {
	column string
	want   string
}

// IsEmpty reports whether no predicate is active
func (p Predicates) IsEmpty() bool {
	for _, column := range Columns {
		if v := p.value(column); v != "" && v != All {
			return false
		}
	}
	return true
}

// Apply returns the rows of v satisfying every active predicate, in order.
// The result is a projection over v: it copies no cells and cannot mutate v.
func Apply(v model.View, p Predicates) *model.Subset {
	clauses := p.active(v.Schema())

	positions := make([]int, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		if matches(v.Row(i), clauses) {
			positions = append(positions, i)
		}
	}
	return model.NewSubset(v, positions)
}

func matches(row model.Row, clauses []clause) bool {
	for _, c := range clauses {
		cell := row.Get(c.column)
		if cell.IsMissing() || cell.String() != c.want {
			return false
		}
	}
	return true
}

// Options returns the sorted distinct non-missing values of a column,
// which is what a selector offers next to "All"
func Options(v model.View, column string) ([]string, error) {
	if !v.Schema().Has(column) {
		return nil, model.ErrUnknownColumn
	}

	seen := make(map[string]struct{})
	options := make([]string, 0)
	for i := 0; i < v.Len(); i++ {
		cell := v.Row(i).Get(column)
		if cell.IsMissing() {
			continue
		}
		s := cell.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		options = append(options, s)
	}
	sort.Strings(options)
	return options, nil
}
