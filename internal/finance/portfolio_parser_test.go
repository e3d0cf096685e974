package finance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"varRiskBot/internal/risk"
)

func TestParseHoldingsCommand(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		basis  risk.Basis
		hold   []risk.Holding
		window string
	}{
		{"weights with window", "/varport spy 0.5 AAPL 0.5 6m", risk.ByWeight,
			[]risk.Holding{{Symbol: "SPY", Amount: 0.5}, {Symbol: "AAPL", Amount: 0.5}}, "6m"},
		{"weights without window", "SPY 0.6 TLT 0.4", risk.ByWeight,
			[]risk.Holding{{Symbol: "SPY", Amount: 0.6}, {Symbol: "TLT", Amount: 0.4}}, ""},
		{"quantities", "qty AAPL 10 MSFT -5 1y", risk.ByQuantity,
			[]risk.Holding{{Symbol: "AAPL", Amount: 10}, {Symbol: "MSFT", Amount: -5}}, "1y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, window, err := ParseHoldingsCommand(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.basis, p.Basis)
			assert.Equal(t, tt.hold, p.Holdings)
			assert.Equal(t, tt.window, window)
		})
	}
}

func TestParseHoldingsCommand_Errors(t *testing.T) {
	for _, in := range []string{
		"",
		"SPY",
		"SPY 0.5 AAPL",
		"SPY half",
		"SPY 0.5 spy 0.5",
		"SPY 0 AAPL 0",
	} {
		_, _, err := ParseHoldingsCommand(in)
		assert.Error(t, err, in)
	}
}

func TestReadPortfolioCSV(t *testing.T) {
	p, err := ReadPortfolioCSV(strings.NewReader("Ticker,Weight\nreliance,0.6\nTCS,0.4\n"))
	require.NoError(t, err)
	assert.Equal(t, risk.ByWeight, p.Basis)
	assert.Equal(t, []risk.Holding{{Symbol: "RELIANCE", Amount: 0.6}, {Symbol: "TCS", Amount: 0.4}}, p.Holdings)

	p, err = ReadPortfolioCSV(strings.NewReader("Symbol,Quantity\nAAPL,10\n"))
	require.NoError(t, err)
	assert.Equal(t, risk.ByQuantity, p.Basis)

	_, err = ReadPortfolioCSV(strings.NewReader("Ticker,Price\nAAPL,10\n"))
	assert.Error(t, err)

	_, err = ReadPortfolioCSV(strings.NewReader("Ticker,Weight\nAAPL,ten\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestLoadPortfolio_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
basis: quantity
holdings:
  - symbol: aapl
    amount: 10
  - symbol: msft
    amount: 4
`), 0o644))

	p, err := LoadPortfolio(path)
	require.NoError(t, err)
	assert.Equal(t, risk.ByQuantity, p.Basis)
	assert.Equal(t, []string{"AAPL", "MSFT"}, p.Symbols())
}

func TestLoadPortfolio_YAMLRejectsUnknownBasis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.yml")
	require.NoError(t, os.WriteFile(path, []byte("basis: notional\nholdings:\n  - {symbol: A, amount: 1}\n"), 0o644))
	_, err := LoadPortfolio(path)
	assert.ErrorIs(t, err, risk.ErrInvalidConfig)
}
