package risk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Confidence is a VaR confidence level stored as a fraction in (0,1).
type Confidence float64

// ParseConfidence accepts either a fraction in (0,1) such as 0.95 or a
// percentage in (1,100) such as 95, and normalizes it to a fraction.
func ParseConfidence(v float64) (Confidence, error) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, fmt.Errorf("%w: confidence must be a finite number", ErrInvalidConfig)
	case v > 0 && v < 1:
		return Confidence(v), nil
	case v > 1 && v < 100:
		return Confidence(v / 100), nil
	default:
		return 0, fmt.Errorf("%w: confidence %v must be in (0,1) as a fraction or (1,100) as a percentage", ErrInvalidConfig, v)
	}
}

// Fraction returns c as a fraction, e.g. 0.95.
func (c Confidence) Fraction() float64 { return float64(c) }

// Percent returns c as a percentage, e.g. 95.
func (c Confidence) Percent() float64 { return float64(c) * 100 }

// Tail returns the loss tail probability 1-c.
func (c Confidence) Tail() float64 { return 1 - float64(c) }

func (c Confidence) String() string {
	return fmt.Sprintf("%g%%", c.Percent())
}

// zFastPath holds the standard normal quantile at 1-c for the usual levels.
var zFastPath = map[Confidence]float64{
	0.90: -1.2815515655446004,
	0.95: -1.6448536269514722,
	0.99: -2.3263478740408408,
}

// ZScore returns the standard normal quantile at 1-c (negative for c > 0.5).
func ZScore(c Confidence) float64 {
	if z, ok := zFastPath[c]; ok {
		return z
	}
	return distuv.UnitNormal.Quantile(c.Tail())
}
