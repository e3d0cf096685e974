package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"varRiskBot/internal/finance"
	"varRiskBot/internal/metrics"
	"varRiskBot/internal/risk"
	"varRiskBot/internal/storage"
)

// Defaults fill the request fields a front end leaves empty.
type Defaults struct {
	Window         int
	Confidence     float64
	PortfolioValue float64
	Simulations    int
}

// Outcome is a finished calculation and the history record written for it.
type Outcome struct {
	Request risk.Request
	Result  *risk.Result
	Record  storage.Record
}

// Service loads prices, runs the calculation and records it.
type Service struct {
	prices   finance.PriceSource
	history  storage.HistoryStore
	metrics  *metrics.Recorder
	defaults Defaults
	log      zerolog.Logger
	now      func() time.Time
}

func New(prices finance.PriceSource, history storage.HistoryStore, rec *metrics.Recorder, defaults Defaults, log zerolog.Logger) *Service {
	return &Service{
		prices:   prices,
		history:  history,
		metrics:  rec,
		defaults: defaults,
		log:      log.With().Str("component", "service").Logger(),
		now:      time.Now,
	}
}

func (s *Service) Defaults() Defaults { return s.defaults }

// WithDefaults fills zero Window, Confidence, PortfolioValue and Simulations.
// Quantity portfolios are already monetary and get no portfolio value.
func (s *Service) WithDefaults(req risk.Request) risk.Request {
	if req.Window == 0 {
		req.Window = s.defaults.Window
	}
	if req.Confidence == 0 {
		req.Confidence = s.defaults.Confidence
	}
	if req.PortfolioValue == 0 && req.EffectivePortfolio().Basis == risk.ByWeight {
		req.PortfolioValue = s.defaults.PortfolioValue
	}
	if req.MonteCarlo && req.Simulations == 0 {
		req.Simulations = s.defaults.Simulations
	}
	return req
}

// Calculate runs req end to end. source labels the front end in metrics.
// A failed history write is logged and does not fail the calculation.
func (s *Service) Calculate(ctx context.Context, source string, req risk.Request) (*Outcome, error) {
	started := s.now()
	out, err := s.calculate(ctx, req)
	s.metrics.Observe(source, OutcomeLabel(err), s.now().Sub(started))
	if err != nil {
		s.log.Info().Err(err).Str("source", source).Strs("symbols", req.EffectivePortfolio().Symbols()).Msg("calculation failed")
		return nil, err
	}

	res := out.Result
	s.metrics.SetVaR(string(risk.MethodHistorical), res.Summary.Historical)
	s.metrics.SetVaR(string(risk.MethodParametric), res.Summary.Parametric)
	s.metrics.SetVaR(string(risk.MethodMonteCarlo), res.Summary.MonteCarlo)
	s.metrics.AddExcluded(len(res.Excluded))

	if s.history != nil {
		if err := s.history.Append(ctx, out.Record); err != nil {
			s.log.Error().Err(err).Msg("history append failed")
		}
	}
	s.log.Info().
		Str("source", source).
		Strs("included", res.Included).
		Strs("excluded", res.Excluded).
		Int("window", res.Window).
		Str("confidence", res.Confidence.String()).
		Dur("elapsed", s.now().Sub(started)).
		Msg("calculation done")
	return out, nil
}

func (s *Service) calculate(ctx context.Context, req risk.Request) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	symbols := req.EffectivePortfolio().Symbols()
	prices, err := s.prices.Load(ctx, symbols, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	res, err := risk.Calculate(req, prices)
	if err != nil {
		return nil, err
	}
	return &Outcome{Request: req, Result: res, Record: recordOf(req, res, s.now())}, nil
}

func recordOf(req risk.Request, res *risk.Result, now time.Time) storage.Record {
	return storage.Record{
		ID:             uuid.NewString(),
		Created:        now,
		Tickers:        req.EffectivePortfolio().Symbols(),
		Start:          req.Start,
		End:            req.End,
		Confidence:     req.Confidence,
		Window:         req.Window,
		PortfolioValue: req.PortfolioValue,
		Historical:     res.Summary.Historical,
		Parametric:     res.Summary.Parametric,
		MonteCarlo:     res.Summary.MonteCarlo,
	}
}

// History returns the stored records, oldest first.
func (s *Service) History(ctx context.Context) ([]storage.Record, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.List(ctx)
}

// IsConfigError reports errors caused by the request itself.
func IsConfigError(err error) bool {
	return errors.Is(err, risk.ErrInvalidConfig) || errors.Is(err, risk.ErrInvalidWindow)
}

// IsNoResult reports errors caused by missing or insufficient data.
func IsNoResult(err error) bool {
	return errors.Is(err, risk.ErrNoData) ||
		errors.Is(err, risk.ErrNoResult) ||
		errors.Is(err, risk.ErrInsufficientData) ||
		errors.Is(err, finance.ErrNoPrices)
}

// OutcomeLabel maps an error to the metrics outcome label.
func OutcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsConfigError(err):
		return "invalid"
	case IsNoResult(err):
		return "no_result"
	default:
		return "error"
	}
}

// Describe is a one-line reason for a failed calculation, for end users.
func Describe(err error) string {
	msg := err.Error()
	if IsNoResult(err) {
		return "no result available: " + msg
	}
	return strings.TrimSpace(msg)
}
