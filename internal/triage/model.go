package triage

import "math"

// Category selects which predictor and feature schema apply to an encounter.
type Category string

const (
	// CategoryPregnant routes encounters flagged as pregnancy visits
	CategoryPregnant Category = "pregnant"

	// CategoryChild routes encounters for children up to 36 months
	CategoryChild Category = "child"

	// CategoryGeneral is the fallback for everything else
	CategoryGeneral Category = "general"
)

// Categories lists every category in a stable order.
var Categories = []Category{CategoryPregnant, CategoryChild, CategoryGeneral}

// RiskClass is the ordinal severity outcome.
type RiskClass int

const (
	RiskLow      RiskClass = 0
	RiskModerate RiskClass = 1
	RiskHigh     RiskClass = 2
)

var riskLabels = map[RiskClass]string{
	RiskLow:      "Low",
	RiskModerate: "Moderate",
	RiskHigh:     "High",
}

var recommendedActions = map[RiskClass]string{
	RiskLow:      "Routine follow-up (30 days)",
	RiskModerate: "Follow-up within 7 days",
	RiskHigh:     "Immediate PHC Referral",
}

// Label returns the human-readable label, or "" for an out-of-range class.
func (c RiskClass) Label() string {
	return riskLabels[c]
}

// Action returns the recommended follow-up text, or "" for an out-of-range class.
func (c RiskClass) Action() string {
	return recommendedActions[c]
}

// FeatureVector is the ordered numeric input for one predictor call.
type FeatureVector []float64

// Probabilities holds the predictor output for {Low, Moderate, High}.
type Probabilities struct {
	Low      float64 `json:"low"`
	Moderate float64 `json:"moderate"`
	High     float64 `json:"high"`
}

// ArgMax returns the class with the highest probability. Exact ties resolve to
// the lowest class index, i.e. toward the less severe class.
func (p Probabilities) ArgMax() RiskClass {
	best := RiskLow
	bestP := p.Low
	if p.Moderate > bestP {
		best, bestP = RiskModerate, p.Moderate
	}
	if p.High > bestP {
		best = RiskHigh
	}
	return best
}

// Rounded returns a copy with every entry rounded to 3 decimal places.
func (p Probabilities) Rounded() Probabilities {
	return Probabilities{
		Low:      round3(p.Low),
		Moderate: round3(p.Moderate),
		High:     round3(p.High),
	}
}

func (p Probabilities) valid() bool {
	for _, v := range [...]float64{p.Low, p.Moderate, p.High} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Result is the outcome of one triage pipeline run.
type Result struct {
	Category          Category      `json:"category"`
	RiskClass         RiskClass     `json:"risk_class"`
	RiskLabel         string        `json:"risk_label"`
	PriorityScore     int           `json:"priority_score"`
	OverrideTriggered bool          `json:"override_triggered"`
	Probabilities     Probabilities `json:"probabilities"`
	RecommendedAction string        `json:"recommended_action"`
}
