package finance

import (
	"context"
	"errors"
	"time"

	"varRiskBot/internal/risk"
)

var ErrNoPrices = errors.New("no price data")

// PriceSource loads daily closes for symbols within [start, end]. A zero
// start or end leaves that side open. Symbols without data are absent from
// the result.
type PriceSource interface {
	Load(ctx context.Context, symbols []string, start, end time.Time) (map[string]risk.PriceSeries, error)
}
