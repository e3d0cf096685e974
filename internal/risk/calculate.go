package risk

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Request is one VaR calculation. Confidence may be a percentage (95) or a
// fraction (0.95). A zero PortfolioValue means 1, i.e. results in return units.
// Without a Portfolio the Symbols are held in equal weights. Simulations must
// be positive when MonteCarlo is set.
type Request struct {
	Symbols        []string
	Start          time.Time
	End            time.Time
	Window         int
	Confidence     float64
	PortfolioValue float64
	Portfolio      *Portfolio
	MonteCarlo     bool
	Simulations    int
	Seed           *uint64
}

// Validate rejects configuration errors before any computation starts.
func (r Request) Validate() error {
	var errs []error
	if len(r.Symbols) == 0 && r.Portfolio == nil {
		errs = append(errs, fmt.Errorf("%w: at least one symbol is required", ErrInvalidConfig))
	}
	if r.Window < 1 {
		errs = append(errs, fmt.Errorf("%w: window %d must be a positive integer", ErrInvalidConfig, r.Window))
	}
	if _, err := ParseConfidence(r.Confidence); err != nil {
		errs = append(errs, err)
	}
	if r.PortfolioValue < 0 || math.IsNaN(r.PortfolioValue) || math.IsInf(r.PortfolioValue, 0) {
		errs = append(errs, fmt.Errorf("%w: portfolio value %v must be positive", ErrInvalidConfig, r.PortfolioValue))
	}
	if r.MonteCarlo && r.Simulations < 1 {
		errs = append(errs, fmt.Errorf("%w: simulation count %d must be positive", ErrInvalidConfig, r.Simulations))
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		errs = append(errs, fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidConfig,
			r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly)))
	}
	if r.Portfolio != nil {
		if err := r.Portfolio.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EffectivePortfolio returns the explicit portfolio or equal weights over Symbols.
func (r Request) EffectivePortfolio() Portfolio {
	if r.Portfolio != nil {
		return *r.Portfolio
	}
	return EqualWeights(r.Symbols)
}

// Summary holds the last defined estimates. Nil means undefined.
type Summary struct {
	Historical *float64
	Parametric *float64
	MonteCarlo *float64
}

// Result is the full output of Calculate.
type Result struct {
	Confidence    Confidence
	Window        int
	Scale         float64
	Basis         Basis
	Summary       Summary
	Returns       Series
	HistoricalVaR Series
	ParametricVaR Series
	Included      []string
	Excluded      []string
	Warnings      []string
}

func ptr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// Calculate runs the aggregation and all requested estimators over prices,
// which must already be filtered to the request's instruments and dates.
func Calculate(req Request, prices map[string]PriceSeries) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, _ := ParseConfidence(req.Confidence)

	var agg *PortfolioPnL
	var err error
	if req.Portfolio == nil {
		agg, err = AggregateEqual(req.Symbols, prices)
	} else {
		agg, err = Aggregate(*req.Portfolio, prices)
	}
	if err != nil {
		return nil, err
	}

	scale := req.PortfolioValue
	if scale == 0 {
		scale = 1
	}
	warnings := agg.Warnings
	if agg.Basis == ByQuantity {
		if scale != 1 {
			warnings = append(warnings, "quantity portfolio: P&L is already monetary, portfolio value ignored")
		}
		scale = 1
	}

	pnl := agg.PnL
	if pnl.Len() < 2 {
		return nil, fmt.Errorf("%w: %d aligned observations for %s", ErrNoResult, pnl.Len(), strings.Join(agg.Included, ", "))
	}
	if req.Window > pnl.Len() {
		return nil, fmt.Errorf("%w: window %d exceeds %d available observations", ErrNoResult, req.Window, pnl.Len())
	}

	hist, err := RollingHistoricalVaR(pnl, req.Window, c, scale)
	if err != nil {
		return nil, err
	}
	param, err := RollingParametricVaR(pnl, req.Window, c, scale)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Confidence:    c,
		Window:        req.Window,
		Scale:         scale,
		Basis:         agg.Basis,
		Returns:       pnl,
		HistoricalVaR: hist,
		ParametricVaR: param,
		Included:      agg.Included,
		Excluded:      agg.Excluded,
		Warnings:      warnings,
	}
	res.Summary.Historical = ptr(hist.Last())
	res.Summary.Parametric = ptr(param.Last())
	if req.MonteCarlo {
		res.Summary.MonteCarlo = ptr(MonteCarloVaR(pnl.Defined().Values, c, scale, MonteCarloOptions{
			Simulations: req.Simulations,
			Seed:        req.Seed,
		}))
	}
	return res, nil
}
