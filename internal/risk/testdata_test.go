package risk

import (
	"math/rand/v2"
	"time"
)

var baseDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func days(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = baseDate.AddDate(0, 0, i)
	}
	return out
}

func priceSeries(symbol string, prices ...float64) PriceSeries {
	return PriceSeries{Symbol: symbol, Dates: days(len(prices)), Prices: prices}
}

func series(values ...float64) Series {
	return Series{Dates: days(len(values)), Values: values}
}

// gaussianPrices builds a price path whose returns are drawn from N(mu, sigma).
func gaussianPrices(symbol string, n int, mu, sigma float64, seed uint64) PriceSeries {
	rng := rand.New(rand.NewPCG(seed, 1))
	prices := make([]float64, n)
	prices[0] = 100
	for i := 1; i < n; i++ {
		prices[i] = prices[i-1] * (1 + mu + sigma*rng.NormFloat64())
	}
	return priceSeries(symbol, prices...)
}

func seedOf(v uint64) *uint64 { return &v }
