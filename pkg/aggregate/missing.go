// Package aggregate computes compliance and cost metrics over any table view.
//
// Every function is pure and accepts an empty view: percentages over zero rows
// or zero cost are reported as 0 rather than failing. A missing MonthlyCostUSD
// contributes 0 to every sum.
package aggregate

import (
	"slices"

	"github.com/David-Botos/tag-remediation/pkg/model"
)

// ColumnMissing is the missing-value count of one column
type ColumnMissing struct {
	Column         string  `json:"column" yaml:"column"`
	Missing        int     `json:"missing" yaml:"missing"`
	MissingPercent float64 `json:"missing_percent" yaml:"missing_percent"`
	PresentPercent float64 `json:"present_percent" yaml:"present_percent"`
}

// MissingReport lists missing-value counts per column in schema order
type MissingReport struct {
	Rows    int             `json:"rows" yaml:"rows"`
	Columns []ColumnMissing `json:"columns" yaml:"columns"`
}

// Missing counts missing cells for every column of the view
func Missing(v model.View) MissingReport {
	return missingFor(v, v.Schema().Columns())
}

// MissingTagFields counts missing cells for the tag fields present in the view,
// most missing first
func MissingTagFields(v model.View) MissingReport {
	report := missingFor(v, v.Schema().Present(model.TagFields))
	slices.SortStableFunc(report.Columns, func(a, b ColumnMissing) int {
		return b.Missing - a.Missing
	})
	return report
}

func missingFor(v model.View, columns []string) MissingReport {
	counts := make([]int, len(columns))
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		for c, name := range columns {
			if row.Get(name).IsMissing() {
				counts[c]++
			}
		}
	}

	report := MissingReport{
		Rows:    v.Len(),
		Columns: make([]ColumnMissing, len(columns)),
	}
	for c, name := range columns {
		report.Columns[c] = ColumnMissing{
			Column:         name,
			Missing:        counts[c],
			MissingPercent: percent(float64(counts[c]), float64(v.Len())),
			PresentPercent: percent(float64(v.Len()-counts[c]), float64(v.Len())),
		}
	}
	return report
}

// Top returns up to n columns with at least one missing cell, most missing first.
// Ties keep schema order.
func (r MissingReport) Top(n int) []ColumnMissing {
	top := make([]ColumnMissing, 0, len(r.Columns))
	for _, c := range r.Columns {
		if c.Missing > 0 {
			top = append(top, c)
		}
	}
	slices.SortStableFunc(top, func(a, b ColumnMissing) int {
		return b.Missing - a.Missing
	})
	if n >= 0 && len(top) > n {
		top = top[:n]
	}
	return top
}

// Column returns the entry for a column
func (r MissingReport) Column(name string) (ColumnMissing, bool) {
	for _, c := range r.Columns {
		if c.Column == name {
			return c, true
		}
	}
	return ColumnMissing{}, false
}

// percent returns part/whole*100, or 0 when whole is 0
func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
