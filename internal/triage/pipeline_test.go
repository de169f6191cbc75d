package triage

import (
	"math"
	"slices"
	"testing"
)

func TestVectorize_OrderAndDefaults(t *testing.T) {
	t.Parallel()

	rec := Record{
		"age_months":  "18",
		"weight":      9.5,
		"convulsions": true,
		"gender":      "female", // not numeric
		"unrelated":   123,
	}

	got := Vectorize(rec, ChildFeatures)
	if len(got) != len(ChildFeatures) {
		t.Fatalf("len = %d, want %d", len(got), len(ChildFeatures))
	}

	want := map[string]float64{
		"age_months":  18,
		"gender":      0,
		"weight":      9.5,
		"convulsions": 1,
	}
	for i, name := range ChildFeatures {
		w := want[name] // missing names default to 0
		if got[i] != w {
			t.Errorf("%s (index %d) = %v, want %v", name, i, got[i], w)
		}
	}
}

func TestVectorize_Lengths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category Category
		want     int
	}{
		{CategoryPregnant, 15},
		{CategoryChild, 12},
		{CategoryGeneral, 16},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			t.Parallel()
			if got := len(Vectorize(Record{}, FeatureNames(tt.category))); got != tt.want {
				t.Errorf("len = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVectorize_TracksMalformedFields(t *testing.T) {
	t.Parallel()

	rec := Record{"age": "old", "gender": nil, "weight": "n/a"}

	fields := newFieldTracker(rec)
	vectorize(fields, GeneralFeatures)

	// gender is null, which counts as absent
	want := []string{"age", "weight"}
	if fallbacks := fields.drain(); !slices.Equal(fallbacks, want) {
		t.Errorf("fallbacks = %v, want %v", fallbacks, want)
	}
}

func TestRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  Record
		want Category
	}{
		{"pregnant flag", Record{"pregnant_flag": 1}, CategoryPregnant},
		{"pregnant wins over child age", Record{"pregnant_flag": 1, "age_months": 12}, CategoryPregnant},
		{"pregnant flag as string", Record{"pregnant_flag": "1"}, CategoryPregnant},
		{"pregnant flag zero", Record{"pregnant_flag": 0, "age": 30}, CategoryGeneral},
		{"child at boundary", Record{"age_months": 36}, CategoryChild},
		{"child newborn", Record{"age_months": 0}, CategoryChild},
		{"over child age", Record{"age_months": 40}, CategoryGeneral},
		{"age_months null", Record{"age_months": nil}, CategoryGeneral},
		{"age_months malformed", Record{"age_months": "unknown"}, CategoryGeneral},
		{"empty record", Record{}, CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, names := Route(tt.rec)
			if got != tt.want {
				t.Errorf("Route() = %q, want %q", got, tt.want)
			}
			if !slices.Equal(names, FeatureNames(tt.want)) {
				t.Errorf("feature names do not match category %q", tt.want)
			}
		})
	}
}

func TestSafetyOverride(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		rec       Record
		predicted RiskClass
		want      RiskClass
		rule      string
	}{
		{"no breach keeps low", Record{"systolic_bp": 120}, RiskLow, RiskLow, ""},
		{"no breach keeps moderate", Record{}, RiskModerate, RiskModerate, ""},
		{"bp at threshold", Record{"systolic_bp": 180}, RiskLow, RiskLow, ""},
		{"bp over threshold", Record{"systolic_bp": 181}, RiskLow, RiskHigh, RuleSystolicBP},
		{"sugar over threshold", Record{"blood_sugar": 351}, RiskModerate, RiskHigh, RuleBloodSugar},
		{"sugar at threshold", Record{"blood_sugar": 350}, RiskLow, RiskLow, ""},
		{"temperature over", Record{"body_temperature": 103.5}, RiskLow, RiskHigh, RuleTemperature},
		{"temperature at", Record{"body_temperature": 103}, RiskLow, RiskLow, ""},
		{"convulsions", Record{"convulsions": 1}, RiskLow, RiskHigh, RuleConvulsions},
		{"convulsions bool", Record{"convulsions": true}, RiskLow, RiskHigh, RuleConvulsions},
		{"convulsions 2 does not match", Record{"convulsions": 2}, RiskLow, RiskLow, ""},
		{"first rule reported", Record{"systolic_bp": 200, "convulsions": 1}, RiskLow, RiskHigh, RuleSystolicBP},
		{"already high", Record{"systolic_bp": 200}, RiskHigh, RiskHigh, RuleSystolicBP},
		{"malformed reads zero", Record{"systolic_bp": "very high"}, RiskLow, RiskLow, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SafetyOverride(tt.rec, tt.predicted); got != tt.want {
				t.Errorf("SafetyOverride() = %d, want %d", got, tt.want)
			}
			rule, _ := breachedRule(tt.rec)
			if rule != tt.rule {
				t.Errorf("breachedRule() = %q, want %q", rule, tt.rule)
			}
		})
	}
}

func TestSafetyOverride_NeverLowers(t *testing.T) {
	t.Parallel()

	recs := []Record{
		{},
		{"systolic_bp": 190},
		{"blood_sugar": 100},
		{"convulsions": 1, "body_temperature": 99},
	}
	for _, rec := range recs {
		for _, c := range []RiskClass{RiskLow, RiskModerate, RiskHigh} {
			if got := SafetyOverride(rec, c); got < c {
				t.Errorf("SafetyOverride(%v, %d) = %d, lowered severity", rec, c, got)
			}
		}
	}
}

func TestPriorityScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		class RiskClass
		rec   Record
		want  int
	}{
		{"low base", RiskLow, Record{}, 10},
		{"moderate base", RiskModerate, Record{}, 40},
		{"high base", RiskHigh, Record{}, 80},
		{"unknown class scores low", RiskClass(7), Record{}, 10},
		{"missed 2", RiskLow, Record{"missed_followups": 2}, 10},
		{"missed 3", RiskLow, Record{"missed_followups": 3}, 25},
		{"missed 4", RiskLow, Record{"missed_followups": 4}, 25},
		{"missed 5", RiskLow, Record{"missed_followups": 5}, 35},
		{"third trimester", RiskModerate, Record{"trimester": 3}, 60},
		{"second trimester", RiskModerate, Record{"trimester": 2}, 40},
		{"maximum", RiskHigh, Record{"missed_followups": 9, "trimester": 3}, 125},
		{"trimester on general record", RiskLow, Record{"age": 40, "trimester": 3}, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := PriorityScore(tt.class, tt.rec); got != tt.want {
				t.Errorf("PriorityScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPriorityScore_Bounds(t *testing.T) {
	t.Parallel()

	for _, c := range []RiskClass{RiskLow, RiskModerate, RiskHigh} {
		for missed := range 8 {
			for _, tri := range []int{0, 1, 2, 3} {
				got := PriorityScore(c, Record{"missed_followups": missed, "trimester": tri})
				if got < 10 || got > 125 {
					t.Errorf("PriorityScore(%d, missed=%d, trimester=%d) = %d out of [10,125]", c, missed, tri, got)
				}
			}
		}
	}
}

func TestProbabilities_ArgMax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Probabilities
		want RiskClass
	}{
		{"low", Probabilities{0.7, 0.2, 0.1}, RiskLow},
		{"moderate", Probabilities{0.2, 0.7, 0.1}, RiskModerate},
		{"high", Probabilities{0.1, 0.2, 0.7}, RiskHigh},
		{"tie low moderate", Probabilities{0.4, 0.4, 0.2}, RiskLow},
		{"tie moderate high", Probabilities{0.2, 0.4, 0.4}, RiskModerate},
		{"all equal", Probabilities{1.0 / 3, 1.0 / 3, 1.0 / 3}, RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.p.ArgMax(); got != tt.want {
				t.Errorf("ArgMax() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProbabilities_RoundedAndValid(t *testing.T) {
	t.Parallel()

	p := Probabilities{Low: 0.12345, Moderate: 0.6666, High: 0.2099}.Rounded()
	want := Probabilities{Low: 0.123, Moderate: 0.667, High: 0.21}
	if p != want {
		t.Errorf("Rounded() = %+v, want %+v", p, want)
	}

	if !(Probabilities{0, 0, 1}).valid() {
		t.Error("zeros should be valid")
	}
	for _, bad := range []Probabilities{
		{math.NaN(), 0, 0},
		{0, math.Inf(1), 0},
		{0, 0, -0.1},
	} {
		if bad.valid() {
			t.Errorf("%+v reported valid", bad)
		}
	}
}

func TestRiskClass_LabelAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		class  RiskClass
		label  string
		action string
	}{
		{RiskLow, "Low", "Routine follow-up (30 days)"},
		{RiskModerate, "Moderate", "Follow-up within 7 days"},
		{RiskHigh, "High", "Immediate PHC Referral"},
		{RiskClass(3), "", ""},
	}
	for _, tt := range tests {
		if got := tt.class.Label(); got != tt.label {
			t.Errorf("Label(%d) = %q, want %q", tt.class, got, tt.label)
		}
		if got := tt.class.Action(); got != tt.action {
			t.Errorf("Action(%d) = %q, want %q", tt.class, got, tt.action)
		}
	}
}

func TestSplitSections(t *testing.T) {
	t.Parallel()

	rec := Record{
		"systolic_bp":      150,
		"headache":         1,
		"missed_followups": 2,
		"age":              30,
	}
	sec := SplitSections(rec)

	if len(sec.Vitals) != 1 || sec.Vitals["systolic_bp"] != 150 {
		t.Errorf("vitals = %v", sec.Vitals)
	}
	if len(sec.Symptoms) != 1 || sec.Symptoms["headache"] != 1 {
		t.Errorf("symptoms = %v", sec.Symptoms)
	}
	if len(sec.Compliance) != 1 || sec.Compliance["missed_followups"] != 2 {
		t.Errorf("compliance = %v", sec.Compliance)
	}
}

func TestNewVisitRecord(t *testing.T) {
	t.Parallel()

	rec := Record{"systolic_bp": 190, "age": 50}
	res := &Result{
		Category:          CategoryGeneral,
		RiskClass:         RiskHigh,
		RiskLabel:         "High",
		PriorityScore:     80,
		OverrideTriggered: true,
		Probabilities:     Probabilities{Low: 0.8, Moderate: 0.15, High: 0.05},
	}

	v := NewVisitRecord("v-1", "asha-1", "member-1", rec, res)

	if v.VisitType != "home_visit" || v.ProgramTag != "umeed_triage" {
		t.Errorf("visit type/tag = %q/%q", v.VisitType, v.ProgramTag)
	}
	if !v.ReferralFlag {
		t.Error("referral flag should be set for High")
	}
	if v.ProbLow != 0.8 || v.ProbModerate != 0.15 || v.ProbHigh != 0.05 {
		t.Errorf("probabilities = %v/%v/%v", v.ProbLow, v.ProbModerate, v.ProbHigh)
	}
	if v.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}

	rec["age"] = 99
	if v.VisitData.Number("age") != 50 {
		t.Error("visit data shares the caller's map")
	}

	res.RiskClass = RiskModerate
	if NewVisitRecord("v-2", "a", "m", rec, res).ReferralFlag {
		t.Error("referral flag should be unset for Moderate")
	}
}

func TestNewRegistry_RequiresAll(t *testing.T) {
	t.Parallel()

	p := constPredictor(Probabilities{Low: 1})
	if _, err := NewRegistry(p, nil, p); err == nil {
		t.Fatal("expected error for missing child predictor")
	}

	r, err := NewRegistry(p, p, p)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	for _, c := range Categories {
		if _, ok := r.Get(c); !ok {
			t.Errorf("predictor for %q missing", c)
		}
	}

	var nilReg *Registry
	if _, ok := nilReg.Get(CategoryGeneral); ok {
		t.Error("nil registry should report no predictor")
	}
}

func TestBreachedRule_ReadsAllThresholdFields(t *testing.T) {
	t.Parallel()

	fields := newFieldTracker(Record{
		"systolic_bp":      200,
		"blood_sugar":      "n/a",
		"body_temperature": "hot",
		"convulsions":      0,
	})

	rule, ok := breachedRule(fields)
	if !ok || rule != RuleSystolicBP {
		t.Fatalf("breachedRule() = (%q, %v), want systolic_bp", rule, ok)
	}

	want := []string{"blood_sugar", "body_temperature"}
	if got := fields.drain(); !slices.Equal(got, want) {
		t.Errorf("malformed = %v, want %v", got, want)
	}
}

func TestPriorityScore_TracksMalformedTrimester(t *testing.T) {
	t.Parallel()

	fields := newFieldTracker(Record{"trimester": "third", "missed_followups": 3})
	if got := priorityScore(RiskLow, fields); got != 25 {
		t.Errorf("priorityScore() = %d, want 25", got)
	}
	if got := fields.drain(); !slices.Equal(got, []string{"trimester"}) {
		t.Errorf("malformed = %v, want [trimester]", got)
	}
}
