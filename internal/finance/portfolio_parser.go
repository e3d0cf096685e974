package finance

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"varRiskBot/internal/risk"
)

// ParseHoldingsCommand parses the arguments of a portfolio chat command.
// Format: [qty] SPY 0.5 AAPL 0.25 [1y]
// Returns the portfolio and the lookback window (empty if not given).
func ParseHoldingsCommand(input string) (risk.Portfolio, string, error) {
	parts := strings.Fields(input)
	if len(parts) > 0 && strings.HasPrefix(parts[0], "/") {
		parts = parts[1:]
	}

	p := risk.Portfolio{Basis: risk.ByWeight}
	if len(parts) > 0 {
		switch strings.ToLower(parts[0]) {
		case "qty", "quantity":
			p.Basis = risk.ByQuantity
			parts = parts[1:]
		case "weight", "weights":
			parts = parts[1:]
		}
	}

	var window string
	if len(parts)%2 == 1 && IsLookback(parts[len(parts)-1]) {
		window = parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}
	if len(parts) < 2 {
		return p, "", fmt.Errorf("insufficient arguments: need at least symbol amount")
	}
	if len(parts)%2 != 0 {
		return p, "", fmt.Errorf("invalid format: each symbol must have an amount")
	}

	seen := make(map[string]bool)
	for i := 0; i < len(parts); i += 2 {
		symbol := strings.ToUpper(strings.TrimSpace(parts[i]))
		amountStr := strings.TrimSpace(parts[i+1])

		amount, err := strconv.ParseFloat(amountStr, 64)
		if err != nil {
			return p, "", fmt.Errorf("invalid amount '%s' for symbol %s: %w", amountStr, symbol, err)
		}
		if seen[symbol] {
			return p, "", fmt.Errorf("duplicate symbol: %s", symbol)
		}
		seen[symbol] = true
		p.Holdings = append(p.Holdings, risk.Holding{Symbol: symbol, Amount: amount})
	}
	return p, window, p.Validate()
}

type portfolioFile struct {
	Basis    risk.Basis `yaml:"basis"`
	Holdings []struct {
		Symbol string  `yaml:"symbol"`
		Amount float64 `yaml:"amount"`
	} `yaml:"holdings"`
}

// LoadPortfolio reads a portfolio file: CSV with Ticker and Weight or
// Quantity columns, or YAML (.yaml, .yml).
func LoadPortfolio(path string) (risk.Portfolio, error) {
	f, err := os.Open(path)
	if err != nil {
		return risk.Portfolio{}, fmt.Errorf("open portfolio: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ReadPortfolioYAML(f)
	default:
		return ReadPortfolioCSV(f)
	}
}

func ReadPortfolioYAML(r io.Reader) (risk.Portfolio, error) {
	var pf portfolioFile
	if err := yaml.NewDecoder(r).Decode(&pf); err != nil {
		return risk.Portfolio{}, fmt.Errorf("decode portfolio yaml: %w", err)
	}
	p := risk.Portfolio{Basis: pf.Basis}
	if p.Basis == "" {
		p.Basis = risk.ByWeight
	}
	for _, h := range pf.Holdings {
		p.Holdings = append(p.Holdings, risk.Holding{
			Symbol: strings.ToUpper(strings.TrimSpace(h.Symbol)),
			Amount: h.Amount,
		})
	}
	return p, p.Validate()
}

func ReadPortfolioCSV(r io.Reader) (risk.Portfolio, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return risk.Portfolio{}, fmt.Errorf("read portfolio header: %w", err)
	}

	tickerCol, amountCol := -1, -1
	var p risk.Portfolio
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "ticker", "symbol":
			tickerCol = i
		case "weight":
			amountCol, p.Basis = i, risk.ByWeight
		case "quantity", "qty", "shares":
			amountCol, p.Basis = i, risk.ByQuantity
		}
	}
	if tickerCol < 0 || amountCol < 0 {
		return p, errors.New("portfolio csv needs Ticker and Weight or Quantity columns")
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return p, fmt.Errorf("portfolio line %d: %w", line, err)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(row[amountCol]), 64)
		if err != nil {
			return p, fmt.Errorf("portfolio line %d: invalid amount %q", line, row[amountCol])
		}
		p.Holdings = append(p.Holdings, risk.Holding{
			Symbol: strings.ToUpper(strings.TrimSpace(row[tickerCol])),
			Amount: amount,
		})
	}
	return p, p.Validate()
}
