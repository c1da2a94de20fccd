// Package indicator provides pure recurrence calculators over candle data:
// exponential moving average, deviation, exponentially-weighted variance,
// directional movement / ADX, and the inertia projection fan.
//
// Every calculator is a free function of its input slice and recomputes a
// full output series aligned 1:1 with the input. Entries that cannot be
// computed yet carry an explicit invalid marker — never a NaN sentinel and
// never a silently substituted value.
package indicator

import "math"

// Value is one element of an indicator series: a float plus an explicit
// availability flag. Control flow must branch on Valid, never on NaN
// comparisons.
type Value struct {
	V     float64
	Valid bool
}

// Some wraps a computed value.
func Some(v float64) Value { return Value{V: v, Valid: true} }

// None is the "not yet available" marker.
func None() Value { return Value{} }

// Series is an indicator output aligned 1:1 with its input candle slice.
type Series []Value

// NewSeries allocates an all-invalid series of length n.
func NewSeries(n int) Series {
	return make(Series, n)
}

// FromFloats wraps a raw float slice as an all-valid series.
func FromFloats(vals []float64) Series {
	s := make(Series, len(vals))
	for i, v := range vals {
		s[i] = Some(v)
	}
	return s
}

// At returns the value at index i and whether it is available.
// Out-of-range indices report unavailable rather than panicking.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) {
		return 0, false
	}
	return s[i].V, s[i].Valid
}

// Last returns the newest available value, scanning backwards.
func (s Series) Last() (float64, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Valid {
			return s[i].V, true
		}
	}
	return 0, false
}

// FirstValid returns the index of the first available value, or -1.
func (s Series) FirstValid() int {
	for i := range s {
		if s[i].Valid {
			return i
		}
	}
	return -1
}

// ValidCount returns the number of available entries.
func (s Series) ValidCount() int {
	n := 0
	for i := range s {
		if s[i].Valid {
			n++
		}
	}
	return n
}

// Floats unwraps the series into a float slice, writing NaN at invalid
// entries. Only for display/serialization at the repo edge — core logic
// must use At.
func (s Series) Floats() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		if s[i].Valid {
			out[i] = s[i].V
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
