package triage

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Record is a loosely-typed encounter record as received from the field app.
// Keys vary by category; any field may be absent. Every numeric read goes
// through Number/Lookup so that absent and malformed values have a defined
// default of 0.
type Record map[string]any

// fieldState describes how a record field resolved during a numeric read.
type fieldState int

const (
	fieldMissing fieldState = iota
	fieldOK
	fieldMalformed
)

// Number returns the numeric value of key, or 0 when the key is absent or
// its value cannot be coerced to a finite number.
func (r Record) Number(key string) float64 {
	v, _ := r.field(key)
	return v
}

// Lookup returns the numeric value of key and whether it was present and
// coercible. Absent, null and malformed values all report false.
func (r Record) Lookup(key string) (float64, bool) {
	v, st := r.field(key)
	return v, st == fieldOK
}

func (r Record) field(key string) (float64, fieldState) {
	raw, ok := r[key]
	if !ok || raw == nil {
		return 0, fieldMissing
	}
	v, ok := coerce(raw)
	if !ok {
		return 0, fieldMalformed
	}
	return v, fieldOK
}

// coerce converts a scalar into a finite float64. Booleans map to 0/1 and
// numeric strings are parsed after trimming whitespace.
func coerce(raw any) (float64, bool) {
	var s string
	switch x := raw.(type) {
	case string:
		s = x
	case json.Number:
		s = string(x)
	default:
		return finite(cast.ToFloat64E(raw))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	return finite(cast.ToFloat64E(s))
}

func finite(v float64, err error) (float64, bool) {
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// numberSource is the read side shared by Record and fieldTracker.
type numberSource interface {
	Number(key string) float64
	Lookup(key string) (float64, bool)
}

// fieldTracker reads numbers from one record and remembers every field that
// was present but malformed, each reported once.
type fieldTracker struct {
	rec       Record
	seen      map[string]struct{}
	malformed []string
	drained   int
}

func newFieldTracker(rec Record) *fieldTracker {
	return &fieldTracker{rec: rec, seen: make(map[string]struct{})}
}

func (t *fieldTracker) read(key string) (float64, fieldState) {
	v, st := t.rec.field(key)
	if st == fieldMalformed {
		if _, dup := t.seen[key]; !dup {
			t.seen[key] = struct{}{}
			t.malformed = append(t.malformed, key)
		}
	}
	return v, st
}

func (t *fieldTracker) Number(key string) float64 {
	v, _ := t.read(key)
	return v
}

func (t *fieldTracker) Lookup(key string) (float64, bool) {
	v, st := t.read(key)
	return v, st == fieldOK
}

// drain returns the malformed fields recorded since the previous drain.
func (t *fieldTracker) drain() []string {
	out := t.malformed[t.drained:]
	t.drained = len(t.malformed)
	return out
}

// pick copies the listed keys that are present in r, keeping raw values.
func (r Record) pick(keys []string) map[string]any {
	out := make(map[string]any)
	for _, k := range keys {
		if v, ok := r[k]; ok {
			out[k] = v
		}
	}
	return out
}

// clone returns a shallow copy so stored visit data cannot be mutated through
// the caller's map.
func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
