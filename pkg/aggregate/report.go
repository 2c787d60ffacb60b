package aggregate

import (
	"github.com/David-Botos/tag-remediation/pkg/filter"
	"github.com/David-Botos/tag-remediation/pkg/model"
)

// DefaultTopMissing is how many columns Report.TopMissing lists
const DefaultTopMissing = 10

// Report bundles every aggregate of one view.
// Breakdowns over a column the schema lacks are left empty.
type Report struct {
	Overview            Summary             `json:"overview" yaml:"overview"`
	TagSplit            TagSplit            `json:"tag_split" yaml:"tag_split"`
	TopMissing          []ColumnMissing     `json:"top_missing" yaml:"top_missing"`
	MissingTagFields    MissingReport       `json:"missing_tag_fields" yaml:"missing_tag_fields"`
	FieldCompleteness   []FieldCompleteness `json:"field_completeness" yaml:"field_completeness"`
	AverageCompleteness float64             `json:"average_completeness" yaml:"average_completeness"`
	ScoreDistribution   []int               `json:"score_distribution" yaml:"score_distribution"`
	CostByDepartment    []GroupCost         `json:"cost_by_department,omitempty" yaml:"cost_by_department,omitempty"`
	CostByProject       []GroupCost         `json:"cost_by_project,omitempty" yaml:"cost_by_project,omitempty"`
	CostByService       []GroupCost         `json:"cost_by_service,omitempty" yaml:"cost_by_service,omitempty"`
	CostByEnvironment   []GroupCost         `json:"cost_by_environment,omitempty" yaml:"cost_by_environment,omitempty"`
	UntaggedByService   []GroupCost         `json:"untagged_cost_by_service,omitempty" yaml:"untagged_cost_by_service,omitempty"`
	EnvironmentByTagged []PairCost          `json:"environment_by_tagged,omitempty" yaml:"environment_by_tagged,omitempty"`
}

// BuildReport computes the full report for a view
func BuildReport(v model.View) Report {
	completeness := Completeness(v)

	report := Report{
		Overview:            Summarize(v),
		TagSplit:            CostByTag(v),
		TopMissing:          Missing(v).Top(DefaultTopMissing),
		MissingTagFields:    MissingTagFields(v),
		FieldCompleteness:   FieldsCompleteness(v, model.TagFields),
		AverageCompleteness: completeness.AveragePercent,
		ScoreDistribution:   completeness.ScoreDistribution(),
	}

	report.CostByDepartment = costByOrNil(v, model.ColDepartment)
	report.CostByProject = costByOrNil(v, model.ColProject)
	report.CostByService = costByOrNil(v, model.ColService)
	report.CostByEnvironment = costByOrNil(v, model.ColEnvironment)
	report.UntaggedByService = costByOrNil(filter.Apply(v, filter.Untagged()), model.ColService)

	if pairs, err := CostByPair(v, model.ColEnvironment, model.ColTagged); err == nil {
		report.EnvironmentByTagged = pairs
	}

	return report
}

func costByOrNil(v model.View, column string) []GroupCost {
	groups, err := CostBy(v, column)
	if err != nil {
		return nil
	}
	return groups
}
