package finance

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"varRiskBot/internal/risk"
)

const tradingDaysPerYear = 252.0

// ReturnStats describes a return series. Percentages are in percent.
type ReturnStats struct {
	TotalReturn float64 // compounded over the period
	Volatility  float64 // annualized
	MaxDrawdown float64
	NumDays     int
}

// DescribeReturns summarizes a simple return series by compounding it into
// an index starting at 1.
func DescribeReturns(returns risk.Series) (*ReturnStats, error) {
	r := returns.Defined().Values
	if len(r) < 2 {
		return nil, errors.New("insufficient return data")
	}

	values := make([]float64, len(r)+1)
	values[0] = 1
	for i, x := range r {
		values[i+1] = values[i] * (1 + x)
	}

	dailyVolatility := stat.StdDev(r, nil)
	s := &ReturnStats{
		TotalReturn: (values[len(values)-1] - 1) * 100,
		Volatility:  dailyVolatility * math.Sqrt(tradingDaysPerYear) * 100,
		MaxDrawdown: maxDrawdown(values) * 100,
		NumDays:     len(r),
	}
	if math.IsNaN(s.TotalReturn) || math.IsInf(s.TotalReturn, 0) {
		return nil, errors.New("invalid total return")
	}
	return s, nil
}

// maxDrawdown is the largest peak-to-trough decline as a fraction of the peak.
func maxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	maxDD := 0.0
	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 && v >= 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
