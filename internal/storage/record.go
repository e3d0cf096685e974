package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is how many records a history keeps.
const DefaultCapacity = 10

var ErrInvalidRecord = errors.New("invalid history record")

// Record is one calculation in the history log. Nil VaR fields were undefined.
type Record struct {
	ID             string
	Created        time.Time
	Tickers        []string
	Start          time.Time
	End            time.Time
	Confidence     float64 // as entered, e.g. 95 or 0.95
	Window         int
	PortfolioValue float64
	Historical     *float64
	Parametric     *float64
	MonteCarlo     *float64
}

// HistoryStore keeps the most recent records. Append is atomic with the
// truncation to capacity.
type HistoryStore interface {
	Append(ctx context.Context, r Record) error
	List(ctx context.Context) ([]Record, error) // oldest first
	Close() error
}

// prepare fills the id and timestamp of a new record.
func prepare(r Record, now time.Time) (Record, error) {
	if len(r.Tickers) == 0 {
		return r, errors.Join(ErrInvalidRecord, errors.New("no tickers"))
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Created.IsZero() {
		r.Created = now
	}
	r.Created = r.Created.UTC()
	return r, nil
}
