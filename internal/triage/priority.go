package triage

// PriorityScore computes the additive queueing score for a visit. Any class
// other than Moderate or High scores as Low.
func PriorityScore(class RiskClass, rec Record) int {
	return priorityScore(class, rec)
}

func priorityScore(class RiskClass, src numberSource) int {
	var score int

	switch class {
	case RiskHigh:
		score += 80
	case RiskModerate:
		score += 40
	default:
		score += 10
	}

	missed := src.Number("missed_followups")
	switch {
	case missed > 4:
		score += 25
	case missed > 2:
		score += 15
	}

	// third-trimester boost applies whatever category was routed
	if src.Number("trimester") == 3 {
		score += 20
	}

	return score
}
