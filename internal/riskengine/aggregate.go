package riskengine

// AggregateScores averages the scores of records and classifies the mean with
// the aggregate ladder. An empty set yields 0 and very_low.
func AggregateScores(records []RiskRecord) (float64, RiskLevel) {
	if len(records) == 0 {
		return 0, RiskLevelVeryLow
	}
	var sum float64
	for _, r := range records {
		sum += r.RiskScore
	}
	mean := roundTo2(sum / float64(len(records)))
	return mean, ClassifyAggregate(mean)
}

// AchievementPercentage is actual/target as a percentage, 0 when target is 0.
func AchievementPercentage(actual, target float64) float64 {
	if target == 0 {
		return 0
	}
	return roundTo2(actual / target * 100)
}

// ComplianceRate is compliant/total as a percentage, 0 when total is 0.
func ComplianceRate(compliant, total int) float64 {
	if total == 0 {
		return 0
	}
	return roundTo2(float64(compliant) / float64(total) * 100)
}
