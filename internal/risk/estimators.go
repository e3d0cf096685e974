package risk

import (
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultSimulations is the Monte Carlo draw count front ends fill in when none is given.
const DefaultSimulations = 10000

// simulationChunk is the number of draws per independent random stream.
const simulationChunk = 4096

// Method names an estimator.
type Method string

const (
	MethodHistorical Method = "historical"
	MethodParametric Method = "parametric"
	MethodMonteCarlo Method = "monte_carlo"
)

// lossMagnitude maps a signed loss to the reported VaR figure. A gain is no loss.
func lossMagnitude(loss float64) float64 {
	if loss > 0 {
		return loss
	}
	return 0
}

// HistoricalVaR is the empirical (1-c) quantile of returns, negated and scaled.
// Undefined for fewer than 2 observations.
func HistoricalVaR(returns []float64, c Confidence, scale float64) (float64, bool) {
	if len(returns) < 2 {
		return 0, false
	}
	q, ok := Percentile(returns, 100*c.Tail())
	if !ok {
		return 0, false
	}
	return lossMagnitude(-q) * scale, true
}

// ParametricVaR assumes normally distributed returns with mean mu and standard
// deviation sigma. Undefined when sigma is missing.
func ParametricVaR(mu, sigma float64, c Confidence, scale float64) (float64, bool) {
	if IsMissing(mu) || IsMissing(sigma) || sigma < 0 {
		return 0, false
	}
	return lossMagnitude(-(mu + ZScore(c)*sigma)) * scale, true
}

// MonteCarloOptions configures MonteCarloVaR. A nil Seed draws a fresh one.
type MonteCarloOptions struct {
	Simulations int
	Seed        *uint64
}

// MonteCarloVaR simulates returns from a normal distribution fitted to the
// sample mean and standard deviation of returns and takes the historical VaR
// of the simulated sample. Undefined for fewer than 2 observations or a
// non-positive simulation count.
func MonteCarloVaR(returns []float64, c Confidence, scale float64, opts MonteCarloOptions) (float64, bool) {
	if len(returns) < 2 || opts.Simulations < 1 {
		return 0, false
	}
	mu, sigma := MeanStdDev(returns)
	if IsMissing(mu) || IsMissing(sigma) {
		return 0, false
	}
	n := opts.Simulations
	var seed uint64
	if opts.Seed != nil {
		seed = *opts.Seed
	} else {
		seed = rand.Uint64()
	}
	sims := simulateNormal(n, mu, sigma, seed)
	return HistoricalVaR(sims, c, scale)
}

// simulateNormal draws n values from N(mu, sigma). Draws are split into fixed
// chunks, each fed by its own PCG stream keyed by (seed, chunk index), so the
// output only depends on the seed and n.
func simulateNormal(n int, mu, sigma float64, seed uint64) []float64 {
	out := make([]float64, n)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < n; start += simulationChunk {
		end := min(start+simulationChunk, n)
		stream := uint64(start / simulationChunk)
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, stream))
			for i := start; i < end; i++ {
				out[i] = mu + sigma*rng.NormFloat64()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// RollingHistoricalVaR computes HistoricalVaR over each trailing window of w returns.
func RollingHistoricalVaR(returns Series, w int, c Confidence, scale float64) (Series, error) {
	q, err := RollingPercentile(returns, w, 100*c.Tail())
	if err != nil {
		return Series{}, err
	}
	if w < 2 {
		for i := range q.Values {
			q.Values[i] = Missing
		}
		return q, nil
	}
	for i, v := range q.Values {
		if IsMissing(v) {
			continue
		}
		q.Values[i] = lossMagnitude(-v) * scale
	}
	return q, nil
}

// RollingParametricVaR computes ParametricVaR from the rolling mean and
// standard deviation of w returns.
func RollingParametricVaR(returns Series, w int, c Confidence, scale float64) (Series, error) {
	mu, err := RollingMean(returns, w)
	if err != nil {
		return Series{}, err
	}
	sigma, err := RollingStdDev(returns, w)
	if err != nil {
		return Series{}, err
	}
	out := Series{Dates: returns.Dates, Values: make([]float64, len(returns.Values))}
	for i := range out.Values {
		v, ok := ParametricVaR(mu.Values[i], sigma.Values[i], c, scale)
		if !ok {
			out.Values[i] = Missing
			continue
		}
		out.Values[i] = v
	}
	return out, nil
}
