package triage

// childMaxAgeMonths is the upper bound (inclusive) for the child model.
const childMaxAgeMonths = 36

// Route picks the category and feature list for rec. Order matters: the
// pregnancy flag wins over an age-based child match.
func Route(rec Record) (Category, []string) {
	return route(rec)
}

func route(src numberSource) (Category, []string) {
	if src.Number("pregnant_flag") == 1 {
		return CategoryPregnant, PregnantFeatures
	}
	if age, ok := src.Lookup("age_months"); ok && age <= childMaxAgeMonths {
		return CategoryChild, ChildFeatures
	}
	return CategoryGeneral, GeneralFeatures
}
