package finance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"varRiskBot/internal/risk"
)

// YahooSource loads daily closes from the Yahoo Finance chart API.
type YahooSource struct {
	client   *http.Client
	hosts    []string
	backoffs []time.Duration
	parallel int
	log      zerolog.Logger
}

type YahooOption func(*YahooSource)

func WithHTTPClient(c *http.Client) YahooOption {
	return func(y *YahooSource) { y.client = c }
}

// WithHosts overrides the API hosts, e.g. to point at a test server.
func WithHosts(hosts ...string) YahooOption {
	return func(y *YahooSource) { y.hosts = hosts }
}

func WithBackoffs(b ...time.Duration) YahooOption {
	return func(y *YahooSource) { y.backoffs = b }
}

func NewYahooSource(log zerolog.Logger, opts ...YahooOption) *YahooSource {
	y := &YahooSource{
		client:   &http.Client{Timeout: 15 * time.Second},
		hosts:    []string{"query1.finance.yahoo.com", "query2.finance.yahoo.com"},
		backoffs: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second},
		parallel: 2,
		log:      log.With().Str("component", "yahoo").Logger(),
	}
	for _, o := range opts {
		o(y)
	}
	return y
}

// Load fetches every symbol. Symbols that fail are left out of the result
// and reported in the log; an error is returned only when nothing loaded.
func (y *YahooSource) Load(ctx context.Context, symbols []string, start, end time.Time) (map[string]risk.PriceSeries, error) {
	if end.IsZero() {
		end = truncateDay(time.Now())
	}
	if start.IsZero() {
		start = end.AddDate(-1, 0, 0)
	}

	var (
		mu   sync.Mutex
		out  = make(map[string]risk.PriceSeries, len(symbols))
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(y.parallel)
	for _, sym := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(sym))
		g.Go(func() error {
			// period2 is exclusive
			raw, err := y.fetchDaily(gctx, sym, start, end.AddDate(0, 0, 1))
			if err == nil {
				var ps risk.PriceSeries
				ps, err = raw.toPriceSeries(sym)
				ps = FilterRange(ps, start, end)
				if err == nil && ps.Len() == 0 {
					err = errNoYahooData
				}
				if err == nil {
					mu.Lock()
					out[sym] = ps
					mu.Unlock()
					return nil
				}
			}
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			y.log.Warn().Err(err).Str("symbol", sym).Msg("price fetch failed")
			mu.Lock()
			errs = append(errs, fmt.Errorf("%s: %w", sym, err))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoPrices, errors.Join(errs...))
	}
	return out, nil
}

// toPriceSeries converts exchange-local timestamps to calendar dates.
func (r rawSeries) toPriceSeries(symbol string) (risk.PriceSeries, error) {
	n := min(len(r.timestamps), len(r.closes))
	if n == 0 {
		return risk.PriceSeries{}, errNoYahooData
	}
	loc := time.FixedZone("exchange", r.gmtOffset)
	ps := risk.PriceSeries{
		Symbol: symbol,
		Dates:  make([]time.Time, n),
		Prices: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		ps.Dates[i] = truncateDay(time.Unix(r.timestamps[i], 0).In(loc))
		ps.Prices[i] = r.closes[i]
	}
	return SortDedupe(ps), nil
}
