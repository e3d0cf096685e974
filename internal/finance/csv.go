package finance

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"varRiskBot/internal/risk"
)

// CSVSource reads closes from a local CSV file in either layout:
//
//	long:  Date,Symbol,Close[,...]   one row per symbol and day
//	wide:  Date,AAA,BBB,...          one column per symbol
//
// Column names are matched case-insensitively and extra columns are ignored.
type CSVSource struct {
	path string
	fill bool
	log  zerolog.Logger
}

// NewCSVSource returns a source over path. With fill set, gaps are forward
// then backward filled per symbol after filtering.
func NewCSVSource(path string, fill bool, log zerolog.Logger) *CSVSource {
	return &CSVSource{path: path, fill: fill, log: log.With().Str("component", "csv_prices").Logger()}
}

func (s *CSVSource) Load(ctx context.Context, symbols []string, start, end time.Time) (map[string]risk.PriceSeries, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open prices: %w", err)
	}
	defer f.Close()

	out, err := ReadPrices(f, symbols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for sym, ps := range out {
		ps = FilterRange(SortDedupe(ps), start, end)
		if s.fill {
			ps = FillGaps(ps)
		}
		if ps.Len() == 0 {
			delete(out, sym)
			continue
		}
		out[sym] = ps
	}
	for _, sym := range symbols {
		if _, ok := out[strings.ToUpper(sym)]; !ok {
			s.log.Debug().Str("symbol", sym).Msg("no rows in range")
		}
	}
	return out, nil
}

// ReadPrices parses a price CSV keeping only symbols (all when empty).
// Symbols are upper-cased. Unparsable closes become gaps.
func ReadPrices(r io.Reader, symbols []string) (map[string]risk.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoPrices
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateCol, ok := cols["date"]
	if !ok {
		return nil, errors.New("missing Date column")
	}

	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[strings.ToUpper(strings.TrimSpace(s))] = true
	}
	keep := func(sym string) bool { return len(want) == 0 || want[sym] }

	symCol, long := cols["symbol"]
	closeCol, hasClose := cols["close"]
	if long && !hasClose {
		return nil, errors.New("missing Close column")
	}

	// wide layout: every other column is a symbol
	var wide map[int]string
	if !long {
		wide = make(map[int]string)
		for i, h := range header {
			if sym := strings.ToUpper(strings.TrimSpace(h)); i != dateCol && keep(sym) {
				wide[i] = sym
			}
		}
	}

	out := make(map[string]risk.PriceSeries)
	add := func(sym string, d time.Time, cell string) {
		ps := out[sym]
		ps.Symbol = sym
		ps.Dates = append(ps.Dates, d)
		ps.Prices = append(ps.Prices, parseClose(cell))
		out[sym] = ps
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if dateCol >= len(row) {
			continue
		}
		d, err := parseDate(row[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if long {
			if symCol >= len(row) || closeCol >= len(row) {
				continue
			}
			if sym := strings.ToUpper(strings.TrimSpace(row[symCol])); keep(sym) {
				add(sym, d, row[closeCol])
			}
			continue
		}
		for i, sym := range wide {
			if i < len(row) {
				add(sym, d, row[i])
			}
		}
	}
	return out, nil
}

func parseClose(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

var dateLayouts = []string{time.DateOnly, "2006-01-02 15:04:05", time.RFC3339, "2006/01/02"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
