package aggregate

import (
	"github.com/David-Botos/tag-remediation/pkg/model"
)

// Summary is the headline view of an inventory
type Summary struct {
	Resources       int     `json:"resources" yaml:"resources"`
	TotalCost       float64 `json:"total_cost" yaml:"total_cost"`
	TaggedCount     int     `json:"tagged_count" yaml:"tagged_count"`
	UntaggedCount   int     `json:"untagged_count" yaml:"untagged_count"`
	TaggedPercent   float64 `json:"tagged_percent" yaml:"tagged_percent"`
	UntaggedPercent float64 `json:"untagged_percent" yaml:"untagged_percent"`
	Departments     int     `json:"departments" yaml:"departments"`
}

// Summarize computes the overview numbers for a view
func Summarize(v model.View) Summary {
	split := CostByTag(v)

	departments := make(map[string]struct{})
	for i := 0; i < v.Len(); i++ {
		if d := v.Row(i).Get(model.ColDepartment); !d.IsMissing() {
			departments[d.String()] = struct{}{}
		}
	}

	return Summary{
		Resources:       split.Resources,
		TotalCost:       split.TotalCost,
		TaggedCount:     split.TaggedCount,
		UntaggedCount:   split.UntaggedCount,
		TaggedPercent:   percent(float64(split.TaggedCount), float64(split.Resources)),
		UntaggedPercent: split.UntaggedPercent,
		Departments:     len(departments),
	}
}
