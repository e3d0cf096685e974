package finance

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"varRiskBot/internal/risk"
	"varRiskBot/internal/storage"
)

var pngMagic = []byte("\x89PNG")

func scenarioResult(t *testing.T) *risk.Result {
	t.Helper()
	prices := make([]float64, 60)
	dates := make([]time.Time, 60)
	for i := range prices {
		dates[i] = day("2023-01-02").AddDate(0, 0, i)
		prices[i] = 100 + float64(i%7) - float64(i%3)
	}
	res, err := risk.Calculate(risk.Request{
		Symbols:        []string{"AAA"},
		Window:         10,
		Confidence:     95,
		PortfolioValue: 1000,
	}, map[string]risk.PriceSeries{"AAA": {Symbol: "AAA", Dates: dates, Prices: prices}})
	require.NoError(t, err)
	return res
}

func TestCharts_RollingVaRAndHistogram(t *testing.T) {
	c := NewCharts(NewChartCache(time.Minute))
	res := scenarioResult(t)

	img, err := c.RollingVaR("k1", res)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	img, err = c.ReturnHistogram("k1", res)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))
}

func TestCharts_RollingVaRNeedsTwoPoints(t *testing.T) {
	res := &risk.Result{
		HistoricalVaR: risk.Series{Dates: make([]time.Time, 2), Values: []float64{risk.Missing, 1}},
		ParametricVaR: risk.Series{Dates: make([]time.Time, 2), Values: []float64{risk.Missing, 1}},
	}
	_, err := NewCharts(nil).RollingVaR("k", res)
	assert.ErrorIs(t, err, ErrNoChartData)
}

func TestChartCache_RenderOnceWithinTTL(t *testing.T) {
	cache := NewChartCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	calls := 0
	render := func() ([]byte, error) { calls++; return []byte{1, 2, 3}, nil }

	for i := 0; i < 3; i++ {
		img, err := cache.render("a", render)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, img)
	}
	assert.Equal(t, 1, calls)

	now = now.Add(2 * time.Minute)
	_, err := cache.render("a", render)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "expired entry re-rendered")

	_, err = cache.render("b", func() ([]byte, error) { return nil, errors.New("boom") })
	assert.Error(t, err)
	_, ok := cache.get("b")
	assert.False(t, ok, "errors are not cached")
}

func TestChartCache_SetDropsExpiredEntries(t *testing.T) {
	cache := NewChartCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		_, err := cache.render(fmt.Sprintf("k%d", i), func() ([]byte, error) { return []byte{1}, nil })
		require.NoError(t, err)
		now = now.Add(time.Second)
	}
	assert.LessOrEqual(t, len(cache.entries), 61)
	_, ok := cache.get("k999")
	assert.True(t, ok)
	_, ok = cache.get("k0")
	assert.False(t, ok)
}

func TestChartKey(t *testing.T) {
	from := day("2024-01-02")
	to := day("2024-06-28")
	base := risk.Request{Symbols: []string{"AAA", "BBB"}, Start: from, End: to, Window: 30, Confidence: 95, PortfolioValue: 1000}

	same := base
	same.Symbols = []string{"AAA", "BBB"}
	assert.Equal(t, ChartKey(base), ChartKey(same))

	seed := uint64(3)
	variants := []func(r *risk.Request){
		func(r *risk.Request) { r.Window = 20 },
		func(r *risk.Request) { r.Confidence = 99 },
		func(r *risk.Request) { r.PortfolioValue = 5000 },
		func(r *risk.Request) { r.End = to.AddDate(0, 0, 1) },
		func(r *risk.Request) { r.Symbols = []string{"AAA"} },
		func(r *risk.Request) { r.MonteCarlo, r.Simulations, r.Seed = true, 100, &seed },
		func(r *risk.Request) {
			r.Portfolio = &risk.Portfolio{Basis: risk.ByQuantity, Holdings: []risk.Holding{{Symbol: "AAA", Amount: 0.5}, {Symbol: "BBB", Amount: 0.5}}}
		},
	}
	for i, change := range variants {
		r := base
		change(&r)
		assert.NotEqual(t, ChartKey(base), ChartKey(r), "variant %d", i)
	}
}

func TestHistogram(t *testing.T) {
	labels, counts, err := histogram([]float64{-0.02, -0.01, 0, 0.01, 0.02}, 4, true)
	require.NoError(t, err)
	assert.Len(t, labels, 4)
	assert.Equal(t, "-1.5%", labels[0])
	total := 0.0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 5.0, total)

	labels, counts, err = histogram([]float64{3, 3, 3}, 4, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, labels)
	assert.Equal(t, []float64{3}, counts)

	_, _, err = histogram([]float64{1}, 4, false)
	assert.ErrorIs(t, err, ErrNoChartData)
}

func TestHistoryView(t *testing.T) {
	v := NewHistoryView(time.UTC)
	hist := 1500.0
	records := []storage.Record{
		{Created: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), Tickers: []string{"AAPL"}, Window: 30, Confidence: 95, PortfolioValue: 100000, Historical: &hist},
		{Created: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), Tickers: []string{"MSFT", "TLT"}, Window: 20, Confidence: 99, PortfolioValue: 5000},
	}

	text := v.Text(records)
	assert.Contains(t, text, "Last 2 calculations")
	assert.Contains(t, text, "hist 1500.00 | param n/a")
	assert.Less(t, bytes.Index([]byte(text), []byte("MSFT")), bytes.Index([]byte(text), []byte("AAPL")), "newest first")
	assert.Equal(t, "No calculations recorded yet.", v.Text(nil))

	img, err := v.Chart(records)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	_, err = v.Chart(nil)
	assert.Error(t, err)
}

func TestHistoryView_UndefinedEstimatesAreMarked(t *testing.T) {
	v := NewHistoryView(time.UTC)
	hist := 1500.0
	created := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "01/02 09:00 AAPL (param n/a)", v.barLabel(storage.Record{Created: created, Tickers: []string{"AAPL"}, Historical: &hist}))
	assert.Equal(t, "01/02 09:00 AAPL (hist n/a)", v.barLabel(storage.Record{Created: created, Tickers: []string{"AAPL"}, Parametric: &hist}))
	assert.Equal(t, "01/02 09:00 AAPL", v.barLabel(storage.Record{Created: created, Tickers: []string{"AAPL"}, Historical: &hist, Parametric: &hist}))

	_, err := v.Chart([]storage.Record{{Created: created, Tickers: []string{"AAPL"}}})
	assert.Error(t, err, "nothing defined to draw")
}
