package triage

import "time"

const (
	visitTypeHome   = "home_visit"
	programTagUmeed = "umeed_triage"
)

// Partition key lists. Only keys present in the record are carried over.
var (
	VitalsKeys = []string{
		"systolic_bp", "diastolic_bp",
		"body_temperature", "blood_sugar",
		"weight",
	}

	SymptomKeys = []string{
		"headache", "blurred_vision", "abdominal_pain",
		"breathlessness", "persistent_cough",
		"diarrhea", "vomiting", "lethargy",
		"convulsions", "chest_pain", "weight_loss",
		"fever_symptom", "edema",
	}

	ComplianceKeys = []string{
		"missed_followups",
		"immunization_complete",
	}
)

// Sections is an encounter record split into its storage groups.
type Sections struct {
	Vitals     map[string]any
	Symptoms   map[string]any
	Compliance map[string]any
}

// SplitSections partitions rec into vitals, symptoms and compliance groups.
func SplitSections(rec Record) Sections {
	return Sections{
		Vitals:     rec.pick(VitalsKeys),
		Symptoms:   rec.pick(SymptomKeys),
		Compliance: rec.pick(ComplianceKeys),
	}
}

// VisitRecord is one persisted home visit with its triage outcome flattened
// for storage.
type VisitRecord struct {
	ID                string         `json:"id"`
	MemberID          string         `json:"member_id"`
	AshaID            string         `json:"asha_id"`
	VisitType         string         `json:"visit_type"`
	ProgramTag        string         `json:"program_tag"`
	Category          Category       `json:"category"`
	Vitals            map[string]any `json:"vitals"`
	Symptoms          map[string]any `json:"symptoms"`
	Compliance        map[string]any `json:"compliance"`
	RiskClass         RiskClass      `json:"risk_class"`
	RiskLabel         string         `json:"risk_label"`
	PriorityScore     int            `json:"priority_score"`
	ReferralFlag      bool           `json:"referral_flag"`
	OverrideTriggered bool           `json:"override_triggered"`
	ProbLow           float64        `json:"prob_low"`
	ProbModerate      float64        `json:"prob_moderate"`
	ProbHigh          float64        `json:"prob_high"`
	VisitData         Record         `json:"visit_data"`
	CreatedAt         time.Time      `json:"created_at"`
}

// NewVisitRecord merges the partitioned record, identifiers and triage result.
func NewVisitRecord(id, ashaID, memberID string, rec Record, res *Result) *VisitRecord {
	sec := SplitSections(rec)
	return &VisitRecord{
		ID:                id,
		MemberID:          memberID,
		AshaID:            ashaID,
		VisitType:         visitTypeHome,
		ProgramTag:        programTagUmeed,
		Category:          res.Category,
		Vitals:            sec.Vitals,
		Symptoms:          sec.Symptoms,
		Compliance:        sec.Compliance,
		RiskClass:         res.RiskClass,
		RiskLabel:         res.RiskLabel,
		PriorityScore:     res.PriorityScore,
		ReferralFlag:      res.RiskClass == RiskHigh,
		OverrideTriggered: res.OverrideTriggered,
		ProbLow:           res.Probabilities.Low,
		ProbModerate:      res.Probabilities.Moderate,
		ProbHigh:          res.Probabilities.High,
		VisitData:         rec.clone(),
		CreatedAt:         time.Now().UTC(),
	}
}

// Ack is the store's acknowledgment of an insert.
type Ack struct {
	Rows []VisitRecord `json:"rows"`
}
