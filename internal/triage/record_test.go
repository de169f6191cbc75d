package triage

import (
	"encoding/json"
	"math"
	"testing"
)

func TestRecordNumber(t *testing.T) {
	t.Parallel()

	rec := Record{
		"f64":     float64(1.5),
		"int":     7,
		"int64":   int64(-3),
		"uint8":   uint8(9),
		"bool_t":  true,
		"bool_f":  false,
		"jsonnum": json.Number("42.25"),
		"str":     " 120 ",
		"f32":     float32(2.5),
		"empty":   "",
		"blank":   "   ",
		"units":   "400 mg/dL",
		"nan_str": "NaN",
		"bad_num": json.Number("abc"),
		"map":     map[string]any{"v": 1},
		"bad_str": "high",
		"nan":     math.NaN(),
		"inf":     math.Inf(1),
		"nil":     nil,
		"slice":   []any{1, 2},
	}

	tests := []struct {
		key  string
		want float64
		ok   bool
	}{
		{"f64", 1.5, true},
		{"int", 7, true},
		{"int64", -3, true},
		{"uint8", 9, true},
		{"bool_t", 1, true},
		{"bool_f", 0, true},
		{"jsonnum", 42.25, true},
		{"str", 120, true},
		{"f32", 2.5, true},
		{"empty", 0, false},
		{"blank", 0, false},
		{"units", 0, false},
		{"nan_str", 0, false},
		{"bad_num", 0, false},
		{"map", 0, false},
		{"bad_str", 0, false},
		{"nan", 0, false},
		{"inf", 0, false},
		{"nil", 0, false},
		{"slice", 0, false},
		{"absent", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			if got := rec.Number(tt.key); got != tt.want {
				t.Errorf("Number(%q) = %v, want %v", tt.key, got, tt.want)
			}
			got, ok := rec.Lookup(tt.key)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Lookup(%q) = (%v, %v), want (%v, %v)", tt.key, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRecordField_States(t *testing.T) {
	t.Parallel()

	rec := Record{"ok": 1, "bad": "x", "null": nil}

	if _, st := rec.field("ok"); st != fieldOK {
		t.Errorf("ok state = %d, want fieldOK", st)
	}
	if _, st := rec.field("bad"); st != fieldMalformed {
		t.Errorf("bad state = %d, want fieldMalformed", st)
	}
	if _, st := rec.field("null"); st != fieldMissing {
		t.Errorf("null state = %d, want fieldMissing", st)
	}
	if _, st := rec.field("absent"); st != fieldMissing {
		t.Errorf("absent state = %d, want fieldMissing", st)
	}
}

func TestFieldTracker_ReportsEachFieldOnce(t *testing.T) {
	t.Parallel()

	fields := newFieldTracker(Record{"bp": "190/120", "sugar": "high", "age": 40, "null": nil})

	if v := fields.Number("bp"); v != 0 {
		t.Errorf("Number(bp) = %v, want 0", v)
	}
	fields.Number("age")
	fields.Number("null")
	fields.Number("absent")
	if _, ok := fields.Lookup("bp"); ok {
		t.Error("Lookup(bp) ok = true, want false")
	}

	if got := fields.drain(); len(got) != 1 || got[0] != "bp" {
		t.Fatalf("first drain = %v, want [bp]", got)
	}

	fields.Number("sugar")
	fields.Number("bp")
	if got := fields.drain(); len(got) != 1 || got[0] != "sugar" {
		t.Fatalf("second drain = %v, want [sugar]", got)
	}
	if got := fields.drain(); len(got) != 0 {
		t.Errorf("third drain = %v, want empty", got)
	}
}

func TestRecordClone_Independent(t *testing.T) {
	t.Parallel()

	rec := Record{"age": 30}
	cp := rec.clone()
	cp["age"] = 99
	cp["extra"] = true

	if rec.Number("age") != 30 {
		t.Errorf("original mutated: age = %v", rec["age"])
	}
	if _, ok := rec["extra"]; ok {
		t.Error("original gained key from clone")
	}
}
