package risk

import (
	"math"
	"time"
)

// Missing marks an undefined observation inside a Series.
var Missing = math.NaN()

// IsMissing reports whether v is the missing marker (or otherwise not finite).
func IsMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// PriceSeries holds closes for one instrument, ordered by date with unique dates.
// A NaN or non-positive price is a gap.
type PriceSeries struct {
	Symbol string
	Dates  []time.Time
	Prices []float64
}

// Len returns the number of observations.
func (p PriceSeries) Len() int {
	if len(p.Dates) < len(p.Prices) {
		return len(p.Dates)
	}
	return len(p.Prices)
}

// Series is a dated float series. Missing observations hold NaN.
type Series struct {
	Dates  []time.Time
	Values []float64
}

// Len returns the number of observations, defined or not.
func (s Series) Len() int {
	return len(s.Values)
}

// Count returns the number of defined observations.
func (s Series) Count() int {
	n := 0
	for _, v := range s.Values {
		if !IsMissing(v) {
			n++
		}
	}
	return n
}

// Defined returns a copy of s without missing observations.
func (s Series) Defined() Series {
	out := Series{
		Dates:  make([]time.Time, 0, len(s.Values)),
		Values: make([]float64, 0, len(s.Values)),
	}
	for i, v := range s.Values {
		if IsMissing(v) {
			continue
		}
		out.Dates = append(out.Dates, s.Dates[i])
		out.Values = append(out.Values, v)
	}
	return out
}

// Last returns the most recent defined value.
func (s Series) Last() (float64, bool) {
	for i := len(s.Values) - 1; i >= 0; i-- {
		if !IsMissing(s.Values[i]) {
			return s.Values[i], true
		}
	}
	return 0, false
}

// Pointers converts the series values to pointers, nil for missing. Used for
// JSON encoding where NaN is not representable.
func (s Series) Pointers() []*float64 {
	out := make([]*float64, len(s.Values))
	for i, v := range s.Values {
		if IsMissing(v) {
			continue
		}
		vv := v
		out[i] = &vv
	}
	return out
}
