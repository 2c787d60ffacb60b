package aggregate

import (
	"github.com/David-Botos/tag-remediation/pkg/model"
)

// RowCompleteness is the tag completeness score of one row
type RowCompleteness struct {
	Row            int     `json:"row" yaml:"row"`
	ResourceID     string  `json:"resource_id" yaml:"resource_id"`
	Score          int     `json:"score" yaml:"score"`
	Percent        float64 `json:"percent" yaml:"percent"`
	MonthlyCostUSD float64 `json:"monthly_cost_usd" yaml:"monthly_cost_usd"`
}

// CompletenessReport scores every row against the tag fields present in the schema
type CompletenessReport struct {
	Fields         []string          `json:"fields" yaml:"fields"`
	Rows           []RowCompleteness `json:"rows" yaml:"rows"`
	AverageScore   float64           `json:"average_score" yaml:"average_score"`
	AveragePercent float64           `json:"average_percent" yaml:"average_percent"`
}

// Completeness counts the non-missing tag fields of each row.
// Percent is score / number of present tag fields * 100, or 0 when none are present.
func Completeness(v model.View) CompletenessReport {
	fields := v.Schema().Present(model.TagFields)
	report := CompletenessReport{
		Fields: fields,
		Rows:   make([]RowCompleteness, v.Len()),
	}

	var totalScore, totalPercent float64
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		score := 0
		for _, f := range fields {
			if !row.Get(f).IsMissing() {
				score++
			}
		}
		pct := percent(float64(score), float64(len(fields)))
		report.Rows[i] = RowCompleteness{
			Row:            row.Index(),
			ResourceID:     row.Text(model.ColResourceID),
			Score:          score,
			Percent:        pct,
			MonthlyCostUSD: row.Get(model.ColMonthlyCostUSD).Amount(),
		}
		totalScore += float64(score)
		totalPercent += pct
	}

	if v.Len() > 0 {
		report.AverageScore = totalScore / float64(v.Len())
		report.AveragePercent = totalPercent / float64(v.Len())
	}
	return report
}

// ScoreDistribution counts rows per completeness score, indexed by score
func (r CompletenessReport) ScoreDistribution() []int {
	dist := make([]int, len(r.Fields)+1)
	for _, row := range r.Rows {
		dist[row.Score]++
	}
	return dist
}

// FieldCompleteness is the share of rows with a value in one field
type FieldCompleteness struct {
	Field   string  `json:"field" yaml:"field"`
	Present int     `json:"present" yaml:"present"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// FieldsCompleteness reports, for each named field present in the view, how many
// rows carry a value. Fields absent from the schema are skipped.
func FieldsCompleteness(v model.View, fields []string) []FieldCompleteness {
	fields = v.Schema().Present(fields)
	out := make([]FieldCompleteness, len(fields))
	for c, f := range fields {
		present := 0
		for i := 0; i < v.Len(); i++ {
			if !v.Row(i).Get(f).IsMissing() {
				present++
			}
		}
		out[c] = FieldCompleteness{
			Field:   f,
			Present: present,
			Percent: percent(float64(present), float64(v.Len())),
		}
	}
	return out
}

// AverageCompleteness is the share of filled cells across the named fields
// that exist in the view, as a percentage
func AverageCompleteness(v model.View, fields []string) float64 {
	fields = v.Schema().Present(fields)
	filled := 0
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		for _, f := range fields {
			if !row.Get(f).IsMissing() {
				filled++
			}
		}
	}
	return percent(float64(filled), float64(v.Len()*len(fields)))
}
