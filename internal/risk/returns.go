package risk

import (
	"fmt"
	"time"
)

func validPrice(p float64) bool {
	return !IsMissing(p) && p > 0
}

// Returns builds the simple return series price(t)/price(t-1) - 1.
// The first price yields no entry; a gap on either side of t leaves t missing.
func Returns(prices PriceSeries) (Series, error) {
	n := prices.Len()
	if n < 2 {
		return Series{}, fmt.Errorf("%s: %w", prices.Symbol, ErrInsufficientData)
	}
	out := Series{
		Dates:  make([]time.Time, n-1),
		Values: make([]float64, n-1),
	}
	for t := 1; t < n; t++ {
		out.Dates[t-1] = prices.Dates[t]
		prev, cur := prices.Prices[t-1], prices.Prices[t]
		if !validPrice(prev) || !validPrice(cur) {
			out.Values[t-1] = Missing
			continue
		}
		out.Values[t-1] = cur/prev - 1
	}
	return out, nil
}

// PriceChanges builds price(t) - price(t-1) with the same alignment as Returns.
func PriceChanges(prices PriceSeries) (Series, error) {
	n := prices.Len()
	if n < 2 {
		return Series{}, fmt.Errorf("%s: %w", prices.Symbol, ErrInsufficientData)
	}
	out := Series{
		Dates:  make([]time.Time, n-1),
		Values: make([]float64, n-1),
	}
	for t := 1; t < n; t++ {
		out.Dates[t-1] = prices.Dates[t]
		prev, cur := prices.Prices[t-1], prices.Prices[t]
		if !validPrice(prev) || !validPrice(cur) {
			out.Values[t-1] = Missing
			continue
		}
		out.Values[t-1] = cur - prev
	}
	return out, nil
}
