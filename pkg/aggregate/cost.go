package aggregate

import (
	"slices"

	"github.com/David-Botos/tag-remediation/pkg/model"
)

// TagSplit is monthly cost and resource count split by the Tagged column.
// Rows whose Tagged value is neither Yes nor No count toward the totals only.
type TagSplit struct {
	Resources           int     `json:"resources" yaml:"resources"`
	TaggedCount         int     `json:"tagged_count" yaml:"tagged_count"`
	UntaggedCount       int     `json:"untagged_count" yaml:"untagged_count"`
	UntaggedPercent     float64 `json:"untagged_percent" yaml:"untagged_percent"`
	TaggedCost          float64 `json:"tagged_cost" yaml:"tagged_cost"`
	UntaggedCost        float64 `json:"untagged_cost" yaml:"untagged_cost"`
	TotalCost           float64 `json:"total_cost" yaml:"total_cost"`
	UntaggedCostPercent float64 `json:"untagged_cost_percent" yaml:"untagged_cost_percent"`
}

// CostByTag sums MonthlyCostUSD for tagged and untagged rows
func CostByTag(v model.View) TagSplit {
	var s TagSplit
	s.Resources = v.Len()
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		cost := row.Get(model.ColMonthlyCostUSD).Amount()
		s.TotalCost += cost
		switch row.Text(model.ColTagged) {
		case model.TaggedYes:
			s.TaggedCount++
			s.TaggedCost += cost
		case model.TaggedNo:
			s.UntaggedCount++
			s.UntaggedCost += cost
		}
	}
	s.UntaggedPercent = percent(float64(s.UntaggedCount), float64(s.Resources))
	s.UntaggedCostPercent = percent(s.UntaggedCost, s.TotalCost)
	return s
}

// GroupCost is the cost attributed to one value of a column
type GroupCost struct {
	Key       string  `json:"key" yaml:"key"`
	Cost      float64 `json:"cost" yaml:"cost"`
	Resources int     `json:"resources" yaml:"resources"`
}

// CostBy sums MonthlyCostUSD grouped by a column, highest cost first.
// Groups with equal cost keep first-encounter order. Rows with a missing
// group value are left out.
func CostBy(v model.View, column string) ([]GroupCost, error) {
	if !v.Schema().Has(column) {
		return nil, model.ErrUnknownColumn
	}

	groups := make([]GroupCost, 0)
	position := make(map[string]int)
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		key := row.Get(column)
		if key.IsMissing() {
			continue
		}
		k := key.String()
		p, ok := position[k]
		if !ok {
			p = len(groups)
			position[k] = p
			groups = append(groups, GroupCost{Key: k})
		}
		groups[p].Cost += row.Get(model.ColMonthlyCostUSD).Amount()
		groups[p].Resources++
	}

	slices.SortStableFunc(groups, func(a, b GroupCost) int {
		switch {
		case a.Cost > b.Cost:
			return -1
		case a.Cost < b.Cost:
			return 1
		}
		return 0
	})
	return groups, nil
}

// Top returns at most n leading groups
func Top(groups []GroupCost, n int) []GroupCost {
	if n >= 0 && len(groups) > n {
		return groups[:n]
	}
	return groups
}

// PairCost is the cost attributed to one combination of two column values
type PairCost struct {
	First     string  `json:"first" yaml:"first"`
	Second    string  `json:"second" yaml:"second"`
	Cost      float64 `json:"cost" yaml:"cost"`
	Resources int     `json:"resources" yaml:"resources"`
}

// CostByPair sums MonthlyCostUSD grouped by two columns, in first-encounter
// order. The usual pair is (Environment, Tagged).
func CostByPair(v model.View, first, second string) ([]PairCost, error) {
	schema := v.Schema()
	if !schema.Has(first) || !schema.Has(second) {
		return nil, model.ErrUnknownColumn
	}

	type key struct{ a, b string }
	pairs := make([]PairCost, 0)
	position := make(map[key]int)
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		a, b := row.Get(first), row.Get(second)
		if a.IsMissing() || b.IsMissing() {
			continue
		}
		k := key{a.String(), b.String()}
		p, ok := position[k]
		if !ok {
			p = len(pairs)
			position[k] = p
			pairs = append(pairs, PairCost{First: k.a, Second: k.b})
		}
		pairs[p].Cost += row.Get(model.ColMonthlyCostUSD).Amount()
		pairs[p].Resources++
	}
	return pairs, nil
}
