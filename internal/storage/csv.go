package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

var csvHeader = []string{
	"ID", "Created", "Tickers", "Start", "End", "Confidence", "Window",
	"Portfolio", "Historical VaR", "Parametric VaR", "Monte Carlo VaR",
}

// CSVStore keeps the history in a flat CSV file. Every append rewrites the
// file through a temp file and a rename, so readers never see a partial log.
type CSVStore struct {
	mu       sync.Mutex
	path     string
	capacity int
	now      func() time.Time
}

func NewCSVStore(path string, capacity int) (*CSVStore, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("history capacity %d must be at least 1", capacity)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	return &CSVStore{path: path, capacity: capacity, now: time.Now}, nil
}

func (s *CSVStore) Append(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, err := prepare(r, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	records = append(records, r)
	if len(records) > s.capacity {
		records = records[len(records)-s.capacity:]
	}
	return s.write(records)
}

func (s *CSVStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) read() ([]Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("history file %s: expected %d columns, got %d", s.path, len(csvHeader), len(header))
	}

	var out []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}
		r, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("history file %s line %d: %w", s.path, line, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *CSVStore) write(records []Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.csv")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	_ = cw.Write(csvHeader)
	for _, r := range records {
		_ = cw.Write(encodeRow(r))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

func encodeRow(r Record) []string {
	return []string{
		r.ID,
		r.Created.Format(time.RFC3339),
		strings.Join(r.Tickers, ","),
		formatDate(r.Start),
		formatDate(r.End),
		strconv.FormatFloat(r.Confidence, 'g', -1, 64),
		strconv.Itoa(r.Window),
		strconv.FormatFloat(r.PortfolioValue, 'f', -1, 64),
		formatOptional(r.Historical),
		formatOptional(r.Parametric),
		formatOptional(r.MonteCarlo),
	}
}

func decodeRow(row []string) (Record, error) {
	var (
		r   Record
		err error
	)
	r.ID = row[0]
	if r.Created, err = time.Parse(time.RFC3339, row[1]); err != nil {
		return r, fmt.Errorf("created: %w", err)
	}
	r.Tickers = splitTickers(row[2])
	if r.Start, err = parseDate(row[3]); err != nil {
		return r, fmt.Errorf("start: %w", err)
	}
	if r.End, err = parseDate(row[4]); err != nil {
		return r, fmt.Errorf("end: %w", err)
	}
	if r.Confidence, err = strconv.ParseFloat(row[5], 64); err != nil {
		return r, fmt.Errorf("confidence: %w", err)
	}
	if r.Window, err = strconv.Atoi(row[6]); err != nil {
		return r, fmt.Errorf("window: %w", err)
	}
	if r.PortfolioValue, err = strconv.ParseFloat(row[7], 64); err != nil {
		return r, fmt.Errorf("portfolio: %w", err)
	}
	for i, dst := range []**float64{&r.Historical, &r.Parametric, &r.MonteCarlo} {
		if *dst, err = parseOptional(row[8+i]); err != nil {
			return r, fmt.Errorf("%s: %w", csvHeader[8+i], err)
		}
	}
	return r, nil
}

func splitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseOptional(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
