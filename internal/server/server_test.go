package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"varRiskBot/internal/metrics"
	"varRiskBot/internal/risk"
	"varRiskBot/internal/service"
	"varRiskBot/internal/storage"
)

type memPrices map[string]risk.PriceSeries

func (m memPrices) Load(_ context.Context, symbols []string, _, _ time.Time) (map[string]risk.PriceSeries, error) {
	out := map[string]risk.PriceSeries{}
	for _, s := range symbols {
		if ps, ok := m[s]; ok {
			out[s] = ps
		}
	}
	return out, nil
}

func priceSeries(symbol string, prices ...float64) risk.PriceSeries {
	dates := make([]time.Time, len(prices))
	for i := range dates {
		dates[i] = time.Date(2020, 1, 1+i, 0, 0, 0, 0, time.UTC)
	}
	return risk.PriceSeries{Symbol: symbol, Dates: dates, Prices: prices}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewCSVStore(filepath.Join(t.TempDir(), "history.csv"), storage.DefaultCapacity)
	require.NoError(t, err)
	rec := metrics.New()
	prices := memPrices{"X": priceSeries("X", 100, 101, 99, 100, 102, 98)}
	svc := service.New(prices, store, rec, service.Defaults{Window: 3, Confidence: 95, PortfolioValue: 1000, Simulations: 500}, zerolog.Nop())
	return New(Config{Port: "0", Log: zerolog.Nop(), Service: svc, Metrics: rec})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	rr := do(t, newTestServer(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCalculate_OK(t *testing.T) {
	s := newTestServer(t)
	rr := do(t, s, http.MethodPost, "/api/var", `{"symbols":["x"],"start":"2020-01-01","end":"2020-01-06"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp varResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, []string{"X"}, resp.Symbols)
	assert.Equal(t, 3, resp.Window)
	assert.Equal(t, "95%", resp.Confidence)
	require.NotNil(t, resp.Summary.Historical)
	assert.InDelta(t, 34.28401663695778, *resp.Summary.Historical, 1e-9)
	assert.Nil(t, resp.Summary.MonteCarlo)
	assert.NotEmpty(t, resp.ID)

	require.Len(t, resp.Series, 5)
	assert.Nil(t, resp.Series[0].Historical)
	assert.NotNil(t, resp.Series[4].Historical)
	assert.Equal(t, "2020-01-06", resp.Series[4].Date)

	rr = do(t, s, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var hist struct {
		History []historyDTO `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hist))
	require.Len(t, hist.History, 1)
	assert.Equal(t, resp.ID, hist.History[0].ID)
	assert.Equal(t, "2020-01-01", hist.History[0].Start)
}

func TestCalculate_MonteCarloSeeded(t *testing.T) {
	s := newTestServer(t)
	body := `{"symbols":["X"],"start":"2020-01-01","end":"2020-01-06","monte_carlo":true,"simulations":2000,"seed":7}`

	var first, second varResponse
	rr := do(t, s, http.MethodPost, "/api/var", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &first))
	rr = do(t, s, http.MethodPost, "/api/var", body)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))

	require.NotNil(t, first.Summary.MonteCarlo)
	assert.Equal(t, *first.Summary.MonteCarlo, *second.Summary.MonteCarlo)
}

func TestCalculate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"no symbols", `{}`, "symbols"},
		{"bad date", `{"symbols":["X"],"start":"01/02/2020"}`, "start"},
		{"bad basis", `{"holdings":[{"symbol":"X","amount":1}],"basis":"shares"}`, "basis"},
		{"confidence out of range", `{"symbols":["X"],"confidence":100}`, "confidence"},
		{"negative window", `{"symbols":["X"],"window":-2}`, "window"},
		{"holding without symbol", `{"holdings":[{"amount":1}]}`, "holdings[0].symbol"},
	}
	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, "/api/var", tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			var resp struct {
				Errors []ValidationError `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			require.NotEmpty(t, resp.Errors)
			assert.Equal(t, tt.field, resp.Errors[0].Field)
		})
	}
}

func TestCalculate_BlankLookbackUsesDefault(t *testing.T) {
	rr := do(t, newTestServer(t), http.MethodPost, "/api/var", `{"symbols":["X"],"lookback":"  "}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp varResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Start)
	assert.NotEmpty(t, resp.End)
}

func TestCalculate_UnknownField(t *testing.T) {
	rr := do(t, newTestServer(t), http.MethodPost, "/api/var", `{"symbols":["X"],"tickers":["Y"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "ERR_BAD_JSON")
}

func TestCalculate_NoResult(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodPost, "/api/var", `{"symbols":["NOPE"],"start":"2020-01-01","end":"2020-01-06"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "ERR_NO_RESULT")

	rr = do(t, s, http.MethodPost, "/api/var", `{"symbols":["X"],"start":"2020-01-01","end":"2020-01-06","window":50}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCalculate_QuantityHoldings(t *testing.T) {
	rr := do(t, newTestServer(t), http.MethodPost, "/api/var",
		`{"holdings":[{"symbol":"X","amount":10}],"basis":"quantity","start":"2020-01-01","end":"2020-01-06","window":2}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp varResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "quantity", resp.Basis)
	assert.Empty(t, resp.Warnings, "no default portfolio value for quantity holdings")
	assert.Zero(t, resp.PortfolioValue)
	require.NotNil(t, resp.Series[1].Return)
	// 101 -> 99 on 10 units
	assert.InDelta(t, -20.0, *resp.Series[1].Return, 1e-9)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/var", `{"symbols":["X"],"start":"2020-01-01","end":"2020-01-06"}`)

	rr := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `varbot_calc_total{outcome="ok",source="http"} 1`)
}

func TestWebhookMounted(t *testing.T) {
	called := false
	s := New(Config{Port: "0", Log: zerolog.Nop(), Webhook: func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}})
	rr := do(t, s, http.MethodPost, "/telegram/webhook", `{}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, called)
}
