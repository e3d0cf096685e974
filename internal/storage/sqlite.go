package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps :memory: databases shared and writes serialized
	db.SetMaxOpenConns(1)
	return db, nil
}

func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS history(
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		created TEXT NOT NULL,
		tickers TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		confidence REAL NOT NULL,
		win INTEGER NOT NULL,
		portfolio REAL NOT NULL,
		historical REAL,
		parametric REAL,
		monte_carlo REAL
	)`)
	return err
}

// SQLiteStore keeps the history in a table. Insert and truncation share a
// transaction.
type SQLiteStore struct {
	mu       sync.Mutex
	db       *sql.DB
	capacity int
	now      func() time.Time
}

func NewSQLiteStore(ctx context.Context, db *sql.DB, capacity int) (*SQLiteStore, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("history capacity %d must be at least 1", capacity)
	}
	if err := InitSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &SQLiteStore{db: db, capacity: capacity, now: time.Now}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, r Record) error {
	r, err := prepare(r, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO history(
		id, created, tickers, start_date, end_date, confidence, win, portfolio,
		historical, parametric, monte_carlo
	) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.Created.Format(time.RFC3339Nano), strings.Join(r.Tickers, ","),
		formatDate(r.Start), formatDate(r.End), r.Confidence, r.Window, r.PortfolioValue,
		nullable(r.Historical), nullable(r.Parametric), nullable(r.MonteCarlo))
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM history WHERE seq NOT IN (
		SELECT seq FROM history ORDER BY seq DESC LIMIT ?
	)`, s.capacity)
	if err != nil {
		return fmt.Errorf("truncate history: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, created, tickers, start_date, end_date, confidence, win, portfolio,
		historical, parametric, monte_carlo
	FROM history ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                       Record
			created, tickers        string
			start, end              sql.NullString
			hist, param, monteCarlo sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &created, &tickers, &start, &end, &r.Confidence, &r.Window,
			&r.PortfolioValue, &hist, &param, &monteCarlo); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if r.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("history %s created: %w", r.ID, err)
		}
		if r.Start, err = parseDate(start.String); err != nil {
			return nil, fmt.Errorf("history %s start: %w", r.ID, err)
		}
		if r.End, err = parseDate(end.String); err != nil {
			return nil, fmt.Errorf("history %s end: %w", r.ID, err)
		}
		r.Tickers = splitTickers(tickers)
		r.Historical = fromNull(hist)
		r.Parametric = fromNull(param)
		r.MonteCarlo = fromNull(monteCarlo)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
