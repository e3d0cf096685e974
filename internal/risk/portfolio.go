package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Basis selects how holding amounts are interpreted.
type Basis string

const (
	// ByWeight treats amounts as fractions of portfolio value; P&L is a return.
	ByWeight Basis = "weight"
	// ByQuantity treats amounts as units held; P&L is a monetary value change.
	ByQuantity Basis = "quantity"
)

// WeightTolerance is how far weights may drift from summing to 1 before a warning.
const WeightTolerance = 0.01

// Holding is one portfolio line. Amount is a weight or a quantity depending on Basis.
type Holding struct {
	Symbol string
	Amount float64
}

// Portfolio is a set of holdings under a single basis.
type Portfolio struct {
	Basis    Basis
	Holdings []Holding
}

// EqualWeights builds a weight portfolio with 1/n per symbol.
func EqualWeights(symbols []string) Portfolio {
	p := Portfolio{Basis: ByWeight}
	if len(symbols) == 0 {
		return p
	}
	w := 1.0 / float64(len(symbols))
	for _, s := range symbols {
		p.Holdings = append(p.Holdings, Holding{Symbol: s, Amount: w})
	}
	return p
}

// Symbols returns the holding symbols in order.
func (p Portfolio) Symbols() []string {
	out := make([]string, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		out = append(out, h.Symbol)
	}
	return out
}

// Validate checks basis, symbols and amounts.
func (p Portfolio) Validate() error {
	if p.Basis != ByWeight && p.Basis != ByQuantity {
		return fmt.Errorf("%w: portfolio basis %q must be %q or %q", ErrInvalidConfig, p.Basis, ByWeight, ByQuantity)
	}
	if len(p.Holdings) == 0 {
		return fmt.Errorf("%w: portfolio has no holdings", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(p.Holdings))
	nonZero := false
	for i, h := range p.Holdings {
		sym := strings.TrimSpace(h.Symbol)
		if sym == "" {
			return fmt.Errorf("%w: empty symbol at holding %d", ErrInvalidConfig, i+1)
		}
		if seen[sym] {
			return fmt.Errorf("%w: duplicate symbol %s", ErrInvalidConfig, sym)
		}
		seen[sym] = true
		if math.IsNaN(h.Amount) || math.IsInf(h.Amount, 0) {
			return fmt.Errorf("%w: amount for %s must be finite", ErrInvalidConfig, sym)
		}
		if h.Amount != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		return fmt.Errorf("%w: every holding has a zero amount", ErrInvalidConfig)
	}
	return nil
}

// PortfolioPnL is the aggregated P&L series plus what went into it.
type PortfolioPnL struct {
	Basis    Basis
	PnL      Series
	Included []string
	Excluded []string
	Warnings []string
}

type component struct {
	amount float64
	values map[int64]float64
	dates  []time.Time
}

// Aggregate combines per-instrument returns (ByWeight) or price changes
// (ByQuantity) into one P&L series. Output dates are exactly the dates where
// every included instrument has a defined observation. Instruments without
// usable data are excluded and reported; holdings with a zero amount carry no
// position and take no part in the date join.
func Aggregate(p Portfolio, prices map[string]PriceSeries) (*PortfolioPnL, error) {
	return aggregate(p, prices, false)
}

// AggregateEqual holds symbols in equal weights, spread over the symbols that
// have usable data. An excluded symbol does not leave its share as cash.
func AggregateEqual(symbols []string, prices map[string]PriceSeries) (*PortfolioPnL, error) {
	return aggregate(EqualWeights(symbols), prices, true)
}

func aggregate(p Portfolio, prices map[string]PriceSeries, rebalance bool) (*PortfolioPnL, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := &PortfolioPnL{Basis: p.Basis}

	var comps []component
	weightSum := 0.0
	for _, h := range p.Holdings {
		if h.Amount == 0 {
			continue
		}
		ps, ok := prices[h.Symbol]
		if !ok || ps.Len() < 2 {
			out.Excluded = append(out.Excluded, h.Symbol)
			continue
		}
		var s Series
		var err error
		if p.Basis == ByQuantity {
			s, err = PriceChanges(ps)
		} else {
			s, err = Returns(ps)
		}
		if err != nil {
			out.Excluded = append(out.Excluded, h.Symbol)
			continue
		}
		def := s.Defined()
		if def.Len() == 0 {
			out.Excluded = append(out.Excluded, h.Symbol)
			continue
		}
		c := component{amount: h.Amount, values: make(map[int64]float64, def.Len()), dates: def.Dates}
		for i, d := range def.Dates {
			c.values[d.UnixNano()] = def.Values[i]
		}
		comps = append(comps, c)
		out.Included = append(out.Included, h.Symbol)
		weightSum += h.Amount
	}

	for _, sym := range out.Excluded {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s excluded: no usable price data", sym))
	}
	if len(comps) == 0 {
		return out, fmt.Errorf("%w: %s", ErrNoData, strings.Join(out.Excluded, ", "))
	}
	switch {
	case rebalance && len(out.Excluded) > 0:
		w := 1.0 / float64(len(comps))
		for i := range comps {
			comps[i].amount = w
		}
		out.Warnings = append(out.Warnings, fmt.Sprintf("equal weights spread over %d included symbols", len(comps)))
	case p.Basis == ByWeight && math.Abs(weightSum-1) > WeightTolerance:
		// excluded holdings do not count toward the invested weight
		out.Warnings = append(out.Warnings, fmt.Sprintf("weights sum to %.4f, expected 1", weightSum))
	}

	// Inner join on the first component's dates.
	var dates []time.Time
	for _, d := range comps[0].dates {
		key := d.UnixNano()
		inAll := true
		for _, c := range comps[1:] {
			if _, ok := c.values[key]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out.PnL = Series{Dates: dates, Values: make([]float64, len(dates))}
	for i, d := range dates {
		key := d.UnixNano()
		sum := 0.0
		for _, c := range comps {
			sum += c.amount * c.values[key]
		}
		out.PnL.Values[i] = sum
	}
	return out, nil
}
