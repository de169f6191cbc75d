package triage

// Vital-sign thresholds that force a High classification.
const (
	maxSystolicBP      = 180
	maxBloodSugar      = 350
	maxBodyTemperature = 103
)

// Override rule names, used as log fields and metric labels.
const (
	RuleSystolicBP  = "systolic_bp"
	RuleBloodSugar  = "blood_sugar"
	RuleTemperature = "body_temperature"
	RuleConvulsions = "convulsions"
)

// SafetyOverride escalates predicted to High when any danger threshold is
// breached and otherwise returns it unchanged. It never lowers severity.
func SafetyOverride(rec Record, predicted RiskClass) RiskClass {
	if _, ok := breachedRule(rec); ok {
		return RiskHigh
	}
	return predicted
}

// breachedRule reports the first threshold rule that src breaches. Missing
// values read as 0 and so never breach. All threshold fields are read even
// after a match.
func breachedRule(src numberSource) (string, bool) {
	vitals := []struct {
		rule   string
		breach bool
	}{
		{RuleSystolicBP, src.Number("systolic_bp") > maxSystolicBP},
		{RuleBloodSugar, src.Number("blood_sugar") > maxBloodSugar},
		{RuleTemperature, src.Number("body_temperature") > maxBodyTemperature},
		{RuleConvulsions, src.Number("convulsions") == 1},
	}
	for _, v := range vitals {
		if v.breach {
			return v.rule, true
		}
	}
	return "", false
}
