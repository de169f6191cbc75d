package triage

// Feature-name lists must match the column order each classifier was trained
// with. Reordering silently corrupts predictions.
var (
	PregnantFeatures = []string{
		"age", "trimester", "gravida",
		"systolic_bp", "diastolic_bp",
		"body_temperature", "blood_sugar",
		"edema", "headache", "blurred_vision",
		"abdominal_pain", "breathlessness",
		"known_hypertension", "known_diabetes",
		"missed_followups",
	}

	ChildFeatures = []string{
		"age_months", "gender", "weight",
		"body_temperature", "persistent_cough",
		"fever_symptom", "diarrhea", "vomiting",
		"lethargy", "convulsions",
		"immunization_complete", "missed_followups",
	}

	GeneralFeatures = []string{
		"age", "gender",
		"systolic_bp", "diastolic_bp",
		"blood_sugar", "body_temperature",
		"weight", "chest_pain",
		"breathlessness", "persistent_cough",
		"weight_loss", "fever_symptom",
		"known_diabetes", "known_hypertension",
		"known_tb", "missed_followups",
	}
)

// FeatureNames returns the training-order feature list for a category.
func FeatureNames(c Category) []string {
	switch c {
	case CategoryPregnant:
		return PregnantFeatures
	case CategoryChild:
		return ChildFeatures
	default:
		return GeneralFeatures
	}
}

// Vectorize builds the feature vector for names from rec. Absent or
// non-numeric values become 0.0.
func Vectorize(rec Record, names []string) FeatureVector {
	return vectorize(rec, names)
}

func vectorize(src numberSource, names []string) FeatureVector {
	out := make(FeatureVector, len(names))
	for i, name := range names {
		out[i] = src.Number(name)
	}
	return out
}
