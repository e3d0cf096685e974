package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"varRiskBot/internal/finance"
	"varRiskBot/internal/risk"
	"varRiskBot/internal/service"
	"varRiskBot/internal/storage"
)

type holdingDTO struct {
	Symbol string  `json:"symbol" validate:"required"`
	Amount float64 `json:"amount"`
}

type varRequest struct {
	Symbols        []string     `json:"symbols" validate:"required_without=Holdings,dive,required"`
	Holdings       []holdingDTO `json:"holdings" validate:"omitempty,dive"`
	Basis          string       `json:"basis" default:"weight" validate:"oneof=weight quantity"`
	Start          string       `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End            string       `json:"end" validate:"omitempty,datetime=2006-01-02"`
	Lookback       string       `json:"lookback" default:"1y"`
	Window         int          `json:"window" validate:"omitempty,min=1"`
	Confidence     float64      `json:"confidence" validate:"omitempty,gt=0,lt=100"`
	PortfolioValue float64      `json:"portfolio_value" validate:"omitempty,gt=0"`
	MonteCarlo     bool         `json:"monte_carlo"`
	Simulations    int          `json:"simulations" validate:"omitempty,min=1,max=1000000"`
	Seed           *uint64      `json:"seed"`
}

type summaryDTO struct {
	Historical *float64 `json:"historical"`
	Parametric *float64 `json:"parametric"`
	MonteCarlo *float64 `json:"monte_carlo"`
}

type pointDTO struct {
	Date       string   `json:"date"`
	Return     *float64 `json:"return"`
	Historical *float64 `json:"historical"`
	Parametric *float64 `json:"parametric"`
}

type varResponse struct {
	ID             string     `json:"id"`
	Symbols        []string   `json:"symbols"`
	Start          string     `json:"start"`
	End            string     `json:"end"`
	Window         int        `json:"window"`
	Confidence     string     `json:"confidence"`
	PortfolioValue float64    `json:"portfolio_value"`
	Basis          string     `json:"basis"`
	Summary        summaryDTO `json:"summary"`
	Series         []pointDTO `json:"series"`
	Included       []string   `json:"included"`
	Excluded       []string   `json:"excluded"`
	Warnings       []string   `json:"warnings"`
}

type historyDTO struct {
	ID             string     `json:"id"`
	Created        time.Time  `json:"created"`
	Tickers        []string   `json:"tickers"`
	Start          string     `json:"start"`
	End            string     `json:"end"`
	Confidence     float64    `json:"confidence"`
	Window         int        `json:"window"`
	PortfolioValue float64    `json:"portfolio_value"`
	VaR            summaryDTO `json:"var"`
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var body varRequest
	if errs := readAndValidate(r, &body); errs != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}
	req, err := s.toRequest(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []ValidationError{{Code: "ERR_INVALID", Message: err.Error()}}})
		return
	}

	out, err := s.svc.Calculate(r.Context(), "http", s.svc.WithDefaults(req))
	if err != nil {
		status := http.StatusInternalServerError
		code := "ERR_INTERNAL"
		switch {
		case service.IsConfigError(err):
			status, code = http.StatusBadRequest, "ERR_INVALID"
		case service.IsNoResult(err):
			status, code = http.StatusUnprocessableEntity, "ERR_NO_RESULT"
		default:
			s.log.Error().Err(err).Msg("calculation failed")
		}
		writeJSON(w, status, map[string]any{"errors": []ValidationError{{Code: code, Message: service.Describe(err)}}})
		return
	}
	writeJSON(w, http.StatusOK, responseOf(out))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.History(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("history list failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"errors": []ValidationError{{Code: "ERR_INTERNAL", Message: "history unavailable"}}})
		return
	}
	items := make([]historyDTO, 0, len(records))
	for _, rec := range records {
		items = append(items, historyOf(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": items})
}

func (s *Server) toRequest(body varRequest) (risk.Request, error) {
	req := risk.Request{
		Window:         body.Window,
		Confidence:     body.Confidence,
		PortfolioValue: body.PortfolioValue,
		MonteCarlo:     body.MonteCarlo,
		Simulations:    body.Simulations,
		Seed:           body.Seed,
	}
	for _, sym := range body.Symbols {
		req.Symbols = append(req.Symbols, strings.ToUpper(strings.TrimSpace(sym)))
	}
	if len(body.Holdings) > 0 {
		p := risk.Portfolio{Basis: risk.Basis(body.Basis)}
		for _, h := range body.Holdings {
			p.Holdings = append(p.Holdings, risk.Holding{Symbol: strings.ToUpper(strings.TrimSpace(h.Symbol)), Amount: h.Amount})
		}
		req.Portfolio = &p
		req.Symbols = p.Symbols()
	}

	// validated upstream
	if body.Start != "" {
		req.Start, _ = time.Parse(time.DateOnly, body.Start)
	}
	if body.End != "" {
		req.End, _ = time.Parse(time.DateOnly, body.End)
	}
	if body.Start == "" && body.End == "" {
		start, end, err := finance.LookbackRange(body.Lookback, s.now())
		if err != nil {
			return risk.Request{}, err
		}
		req.Start, req.End = start, end
	}
	return req, nil
}

func responseOf(out *service.Outcome) varResponse {
	res := out.Result
	resp := varResponse{
		ID:             out.Record.ID,
		Symbols:        out.Record.Tickers,
		Start:          formatDate(out.Request.Start),
		End:            formatDate(out.Request.End),
		Window:         res.Window,
		Confidence:     res.Confidence.String(),
		PortfolioValue: out.Request.PortfolioValue,
		Basis:          string(res.Basis),
		Summary:        summaryDTO{res.Summary.Historical, res.Summary.Parametric, res.Summary.MonteCarlo},
		Included:       nonNil(res.Included),
		Excluded:       nonNil(res.Excluded),
		Warnings:       nonNil(res.Warnings),
	}

	rets := res.Returns.Pointers()
	hist := res.HistoricalVaR.Pointers()
	param := res.ParametricVaR.Pointers()
	resp.Series = make([]pointDTO, 0, len(res.Returns.Dates))
	for i, d := range res.Returns.Dates {
		p := pointDTO{Date: d.Format(time.DateOnly), Return: rets[i]}
		if i < len(hist) {
			p.Historical = hist[i]
		}
		if i < len(param) {
			p.Parametric = param[i]
		}
		resp.Series = append(resp.Series, p)
	}
	return resp
}

func historyOf(rec storage.Record) historyDTO {
	return historyDTO{
		ID:             rec.ID,
		Created:        rec.Created,
		Tickers:        rec.Tickers,
		Start:          formatDate(rec.Start),
		End:            formatDate(rec.End),
		Confidence:     rec.Confidence,
		Window:         rec.Window,
		PortfolioValue: rec.PortfolioValue,
		VaR:            summaryDTO{rec.Historical, rec.Parametric, rec.MonteCarlo},
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
