package remediation

// ROIAssumptions are the inputs of the remediation payback estimate
type ROIAssumptions struct {
	// OptimizationRate is the share of newly visible cost saved each month
	OptimizationRate float64 `json:"optimization_rate" yaml:"optimization_rate"`
	HoursPerResource float64 `json:"hours_per_resource" yaml:"hours_per_resource"`
	HourlyRateUSD    float64 `json:"hourly_rate_usd" yaml:"hourly_rate_usd"`
}

// DefaultROIAssumptions returns 15% optimization, 15 minutes per resource at $50/hour
func DefaultROIAssumptions() ROIAssumptions {
	return ROIAssumptions{
		OptimizationRate: 0.15,
		HoursPerResource: 0.25,
		HourlyRateUSD:    50,
	}
}

// ROIEstimate is the payback of a remediation effort
type ROIEstimate struct {
	OneTimeCost       float64   `json:"one_time_cost" yaml:"one_time_cost"`
	MonthlySavings    float64   `json:"monthly_savings" yaml:"monthly_savings"`
	AnnualSavings     float64   `json:"annual_savings" yaml:"annual_savings"`
	BreakEvenMonths   float64   `json:"break_even_months" yaml:"break_even_months"`
	NetBenefitByMonth []float64 `json:"net_benefit_by_month" yaml:"net_benefit_by_month"`
}

// EstimateROI projects savings from the cost made visible by remediation.
// BreakEvenMonths is 0 when there are no savings. NetBenefitByMonth covers
// months 0 through 12.
func EstimateROI(remediated int, costVisible float64, a ROIAssumptions) ROIEstimate {
	est := ROIEstimate{
		OneTimeCost:    float64(remediated) * a.HoursPerResource * a.HourlyRateUSD,
		MonthlySavings: costVisible * a.OptimizationRate,
	}
	est.AnnualSavings = est.MonthlySavings * 12
	if est.MonthlySavings > 0 {
		est.BreakEvenMonths = est.OneTimeCost / est.MonthlySavings
	}

	est.NetBenefitByMonth = make([]float64, 13)
	for month := range est.NetBenefitByMonth {
		est.NetBenefitByMonth[month] = est.MonthlySavings*float64(month) - est.OneTimeCost
	}
	return est
}
