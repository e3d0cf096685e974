package finance

import (
	"sort"
	"time"

	"varRiskBot/internal/risk"
)

// SortDedupe orders a series by date. When a date repeats the last row wins.
func SortDedupe(ps risk.PriceSeries) risk.PriceSeries {
	n := min(len(ps.Dates), len(ps.Prices))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return ps.Dates[idx[a]].Before(ps.Dates[idx[b]]) })

	out := risk.PriceSeries{Symbol: ps.Symbol, Dates: make([]time.Time, 0, n), Prices: make([]float64, 0, n)}
	for _, i := range idx {
		last := len(out.Dates) - 1
		if last >= 0 && out.Dates[last].Equal(ps.Dates[i]) {
			out.Prices[last] = ps.Prices[i]
			continue
		}
		out.Dates = append(out.Dates, ps.Dates[i])
		out.Prices = append(out.Prices, ps.Prices[i])
	}
	return out
}

// FilterRange keeps rows within [start, end]. A zero bound is open.
func FilterRange(ps risk.PriceSeries, start, end time.Time) risk.PriceSeries {
	out := risk.PriceSeries{Symbol: ps.Symbol}
	for i, d := range ps.Dates {
		if !start.IsZero() && d.Before(start) {
			continue
		}
		if !end.IsZero() && d.After(end) {
			continue
		}
		out.Dates = append(out.Dates, d)
		out.Prices = append(out.Prices, ps.Prices[i])
	}
	return out
}

// FillGaps replaces gaps with the previous valid close, then fills a leading
// gap with the first valid close. A series with no valid close is unchanged.
func FillGaps(ps risk.PriceSeries) risk.PriceSeries {
	out := risk.PriceSeries{
		Symbol: ps.Symbol,
		Dates:  append([]time.Time(nil), ps.Dates...),
		Prices: append([]float64(nil), ps.Prices...),
	}
	first := -1
	for i, p := range out.Prices {
		if !risk.IsMissing(p) && p > 0 {
			first = i
			break
		}
	}
	if first < 0 {
		return out
	}
	for i := 0; i < first; i++ {
		out.Prices[i] = out.Prices[first]
	}
	last := out.Prices[first]
	for i := first + 1; i < len(out.Prices); i++ {
		if p := out.Prices[i]; risk.IsMissing(p) || p <= 0 {
			out.Prices[i] = last
			continue
		}
		last = out.Prices[i]
	}
	return out
}
