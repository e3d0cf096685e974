package risk

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Percentile returns the p-th percentile (p in [0,100]) of values using linear
// interpolation between order statistics at position p/100*(n-1).
func Percentile(values []float64, p float64) (float64, bool) {
	if len(values) == 0 || math.IsNaN(p) || p < 0 || p > 100 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1], true
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac, true
}

// MeanStdDev returns the sample mean and the sample standard deviation (N-1).
// The standard deviation is NaN for fewer than 2 values.
func MeanStdDev(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return Missing, Missing
	case 1:
		return values[0], Missing
	}
	return stat.Mean(values, nil), stat.StdDev(values, nil)
}

// rolling applies fn to every full trailing window of s. Windows with a missing
// observation, and the first w-1 dates, are missing in the output.
func rolling(s Series, w int, fn func(window []float64) (float64, bool)) (Series, error) {
	if w < 1 {
		return Series{}, fmt.Errorf("%w: got %d", ErrInvalidWindow, w)
	}
	out := Series{Dates: s.Dates, Values: make([]float64, len(s.Values))}
	for i := range out.Values {
		out.Values[i] = Missing
	}
	buf := make([]float64, w)
	for end := w - 1; end < len(s.Values); end++ {
		complete := true
		for i := 0; i < w; i++ {
			v := s.Values[end-w+1+i]
			if IsMissing(v) {
				complete = false
				break
			}
			buf[i] = v
		}
		if !complete {
			continue
		}
		if v, ok := fn(buf); ok && !IsMissing(v) {
			out.Values[end] = v
		}
	}
	return out, nil
}

// RollingMean is the arithmetic mean of the trailing w observations.
func RollingMean(s Series, w int) (Series, error) {
	return rolling(s, w, func(x []float64) (float64, bool) {
		return stat.Mean(x, nil), true
	})
}

// RollingStdDev is the sample standard deviation of the trailing w observations.
// With w == 1 every value is missing.
func RollingStdDev(s Series, w int) (Series, error) {
	return rolling(s, w, func(x []float64) (float64, bool) {
		if len(x) < 2 {
			return 0, false
		}
		return stat.StdDev(x, nil), true
	})
}

// RollingPercentile is the linear-interpolation percentile p of the trailing w observations.
func RollingPercentile(s Series, w int, p float64) (Series, error) {
	if math.IsNaN(p) || p < 0 || p > 100 {
		return Series{}, fmt.Errorf("%w: percentile %v outside [0,100]", ErrInvalidConfig, p)
	}
	return rolling(s, w, func(x []float64) (float64, bool) {
		return Percentile(x, p)
	})
}
