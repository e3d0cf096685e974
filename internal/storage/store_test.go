package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) map[string]HistoryStore {
	t.Helper()
	ctx := context.Background()

	csvStore, err := NewCSVStore(filepath.Join(t.TempDir(), "hist", "history.csv"), DefaultCapacity)
	require.NoError(t, err)

	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	sqliteStore, err := NewSQLiteStore(ctx, db, DefaultCapacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]HistoryStore{"csv": csvStore, "sqlite": sqliteStore}
}

func f(v float64) *float64 { return &v }

func record(i int) Record {
	return Record{
		Created:        time.Date(2024, 1, 1, 12, 0, i, 0, time.UTC),
		Tickers:        []string{"AAPL", fmt.Sprintf("T%d", i)},
		Start:          time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC),
		Confidence:     95,
		Window:         30 + i,
		PortfolioValue: 100000,
		Historical:     f(1000 + float64(i)),
		Parametric:     f(1200.5),
	}
}

func TestHistoryStore_KeepsNewestTen(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 1; i <= 11; i++ {
				require.NoError(t, store.Append(ctx, record(i)))
			}

			got, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, got, 10)
			// record 1 dropped, FIFO order kept
			for i, r := range got {
				assert.Equal(t, 30+i+2, r.Window)
			}
			assert.Equal(t, []string{"AAPL", "T11"}, got[9].Tickers)
		})
	}
}

func TestHistoryStore_RoundTripsNullableEstimates(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := record(1)
			r.Parametric = nil
			r.MonteCarlo = f(987.25)
			r.Start = time.Time{}
			require.NoError(t, store.Append(ctx, r))

			got, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, got, 1)

			assert.NotEmpty(t, got[0].ID)
			assert.True(t, got[0].Created.Equal(r.Created))
			assert.True(t, got[0].Start.IsZero())
			assert.True(t, got[0].End.Equal(r.End))
			require.NotNil(t, got[0].Historical)
			assert.Equal(t, 1001.0, *got[0].Historical)
			assert.Nil(t, got[0].Parametric)
			require.NotNil(t, got[0].MonteCarlo)
			assert.Equal(t, 987.25, *got[0].MonteCarlo)
		})
	}
}

func TestHistoryStore_RejectsEmptyTickers(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Append(context.Background(), Record{Window: 3})
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestCSVStore_FileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	store, err := NewCSVStore(path, 2)
	require.NoError(t, err)

	r := record(1)
	r.ID = "fixed"
	r.MonteCarlo = nil
	require.NoError(t, store.Append(context.Background(), r))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"ID,Created,Tickers,Start,End,Confidence,Window,Portfolio,Historical VaR,Parametric VaR,Monte Carlo VaR\n"+
			"fixed,2024-01-01T12:00:01Z,\"AAPL,T1\",2023-01-01,2023-12-29,95,31,100000,1001,1200.5,\n",
		string(raw))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestCSVStore_ListMissingFile(t *testing.T) {
	store, err := NewCSVStore(filepath.Join(t.TempDir(), "none.csv"), DefaultCapacity)
	require.NoError(t, err)
	got, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCSVStore_ConcurrentAppends(t *testing.T) {
	store, err := NewCSVStore(filepath.Join(t.TempDir(), "history.csv"), DefaultCapacity)
	require.NoError(t, err)

	done := make(chan error)
	for i := 0; i < 25; i++ {
		go func(i int) { done <- store.Append(context.Background(), record(i)) }(i)
	}
	for i := 0; i < 25; i++ {
		require.NoError(t, <-done)
	}
	got, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, DefaultCapacity)
}

func TestNewStores_RejectZeroCapacity(t *testing.T) {
	_, err := NewCSVStore(filepath.Join(t.TempDir(), "h.csv"), 0)
	assert.Error(t, err)

	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()
	_, err = NewSQLiteStore(context.Background(), db, 0)
	assert.Error(t, err)
}
