package remediation

import (
	"slices"

	"github.com/David-Botos/tag-remediation/pkg/aggregate"
	"github.com/David-Botos/tag-remediation/pkg/filter"
	"github.com/David-Botos/tag-remediation/pkg/model"
)

// CountDelta pairs a before and after count. Delta is After - Before.
type CountDelta struct {
	Before int `json:"before" yaml:"before"`
	After  int `json:"after" yaml:"after"`
	Delta  int `json:"delta" yaml:"delta"`
}

// AmountDelta pairs a before and after amount. Delta is After - Before.
type AmountDelta struct {
	Before float64 `json:"before" yaml:"before"`
	After  float64 `json:"after" yaml:"after"`
	Delta  float64 `json:"delta" yaml:"delta"`
}

// FieldDelta is the completeness of one tag field before and after remediation
type FieldDelta struct {
	Field  string  `json:"field" yaml:"field"`
	Before float64 `json:"before" yaml:"before"`
	After  float64 `json:"after" yaml:"after"`
	Delta  float64 `json:"delta" yaml:"delta"`
}

// DepartmentAccountability is the untagged cost of one department before and after
type DepartmentAccountability struct {
	Department            string  `json:"department" yaml:"department"`
	TotalCost             float64 `json:"total_cost" yaml:"total_cost"`
	UntaggedCostBefore    float64 `json:"untagged_cost_before" yaml:"untagged_cost_before"`
	UntaggedCostAfter     float64 `json:"untagged_cost_after" yaml:"untagged_cost_after"`
	CostNowTrackable      float64 `json:"cost_now_trackable" yaml:"cost_now_trackable"`
	AccountabilityPercent float64 `json:"accountability_percent" yaml:"accountability_percent"`
}

// CompareReport is the remediation impact: every metric is computed
// independently on the original and the edited snapshot
type CompareReport struct {
	Resources    int         `json:"resources" yaml:"resources"`
	Tagged       CountDelta  `json:"tagged" yaml:"tagged"`
	Untagged     CountDelta  `json:"untagged" yaml:"untagged"`
	UntaggedCost AmountDelta `json:"untagged_cost" yaml:"untagged_cost"`

	// Completeness is per tag field, as a percentage of rows
	Completeness []FieldDelta `json:"completeness" yaml:"completeness"`
	// Accountability is the average completeness of Department, Project and Owner
	Accountability AmountDelta `json:"accountability" yaml:"accountability"`

	Remediated           int     `json:"remediated" yaml:"remediated"`
	RemediationRate      float64 `json:"remediation_rate" yaml:"remediation_rate"`
	CostVisibilityGained float64 `json:"cost_visibility_gained" yaml:"cost_visibility_gained"`
	VisibilityPercent    float64 `json:"visibility_percent" yaml:"visibility_percent"`
	Compliance           float64 `json:"compliance" yaml:"compliance"`

	Departments []DepartmentAccountability `json:"departments" yaml:"departments"`
	ROI         ROIEstimate                `json:"roi" yaml:"roi"`
}

// Compare computes before/after metrics for the two snapshots
func Compare(original, edited model.View) CompareReport {
	before := aggregate.CostByTag(original)
	after := aggregate.CostByTag(edited)

	report := CompareReport{
		Resources:    edited.Len(),
		Tagged:       countDelta(before.TaggedCount, after.TaggedCount),
		Untagged:     countDelta(before.UntaggedCount, after.UntaggedCount),
		UntaggedCost: amountDelta(before.UntaggedCost, after.UntaggedCost),
	}
	report.Accountability = amountDelta(
		aggregate.AverageCompleteness(original, model.AccountabilityFields),
		aggregate.AverageCompleteness(edited, model.AccountabilityFields),
	)

	report.Remediated = before.UntaggedCount - after.UntaggedCount
	report.RemediationRate = percent(float64(report.Remediated), float64(before.UntaggedCount))
	report.CostVisibilityGained = before.UntaggedCost - after.UntaggedCost
	report.VisibilityPercent = percent(report.CostVisibilityGained, before.UntaggedCost)
	report.Compliance = percent(float64(edited.Len()-after.UntaggedCount), float64(edited.Len()))

	beforeFields := aggregate.FieldsCompleteness(original, model.TagFields)
	afterFields := aggregate.FieldsCompleteness(edited, model.TagFields)
	report.Completeness = make([]FieldDelta, len(beforeFields))
	for i := range beforeFields {
		report.Completeness[i] = FieldDelta{
			Field:  beforeFields[i].Field,
			Before: beforeFields[i].Percent,
			After:  afterFields[i].Percent,
			Delta:  afterFields[i].Percent - beforeFields[i].Percent,
		}
	}

	report.Departments = departmentAccountability(original, edited)
	report.ROI = EstimateROI(report.Remediated, report.CostVisibilityGained, DefaultROIAssumptions())
	return report
}

// departmentAccountability groups untagged cost by the department each row
// carries in its own snapshot. Departments come from the original snapshot.
func departmentAccountability(original, edited model.View) []DepartmentAccountability {
	if !original.Schema().Has(model.ColDepartment) {
		return make([]DepartmentAccountability, 0)
	}

	totals := costMap(original)
	untaggedBefore := costMap(filter.Apply(original, filter.Untagged()))
	untaggedAfter := costMap(filter.Apply(edited, filter.Untagged()))

	groups, _ := aggregate.CostBy(original, model.ColDepartment)
	out := make([]DepartmentAccountability, 0, len(groups))
	for _, g := range groups {
		d := DepartmentAccountability{
			Department:         g.Key,
			TotalCost:          totals[g.Key],
			UntaggedCostBefore: untaggedBefore[g.Key],
			UntaggedCostAfter:  untaggedAfter[g.Key],
		}
		d.CostNowTrackable = d.UntaggedCostBefore - d.UntaggedCostAfter
		d.AccountabilityPercent = percent(d.CostNowTrackable, d.TotalCost)
		out = append(out, d)
	}

	slices.SortStableFunc(out, func(a, b DepartmentAccountability) int {
		switch {
		case a.CostNowTrackable > b.CostNowTrackable:
			return -1
		case a.CostNowTrackable < b.CostNowTrackable:
			return 1
		}
		return 0
	})
	return out
}

func costMap(v model.View) map[string]float64 {
	m := make(map[string]float64)
	groups, err := aggregate.CostBy(v, model.ColDepartment)
	if err != nil {
		return m
	}
	for _, g := range groups {
		m[g.Key] = g.Cost
	}
	return m
}

func countDelta(before, after int) CountDelta {
	return CountDelta{Before: before, After: after, Delta: after - before}
}

func amountDelta(before, after float64) AmountDelta {
	return AmountDelta{Before: before, After: after, Delta: after - before}
}

func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
