package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mdingest/internal/domain/model"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func bar(date time.Time, sym string, close float64) model.Bar {
	return model.Bar{Date: date, Symbol: model.Symbol(sym), Open: 1, High: 2, Low: 0.5, Close: close, Volume: 100}
}

func TestSQLiteUpsertBarsIdempotentMerge(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	n, err := repo.UpsertBars(ctx, []model.Bar{bar(d, "AAPL", 185.0)})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	second := bar(d, "AAPL", 186.5)
	second.Volume = 250
	n, err = repo.UpsertBars(ctx, []model.Bar{second})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var count int
	require.NoError(t, repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candles`).Scan(&count))
	require.Equal(t, 1, count)

	var close, volume float64
	require.NoError(t, repo.db.QueryRowContext(ctx,
		`SELECT close, volume FROM candles WHERE date=? AND symbol=?`, "2024-01-02", "AAPL").Scan(&close, &volume))
	require.Equal(t, 186.5, close)
	require.Equal(t, 250.0, volume)
}

func TestSQLiteUpsertBarsBatchTieBreak(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	n, err := repo.UpsertBars(ctx, []model.Bar{
		bar(d, "AAPL", 185.0),
		bar(d, "MSFT", 370.0),
		bar(d, "AAPL", 187.25),
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	var close float64
	require.NoError(t, repo.db.QueryRowContext(ctx,
		`SELECT close FROM candles WHERE date=? AND symbol=?`, "2024-01-02", "AAPL").Scan(&close))
	require.Equal(t, 187.25, close)
}

func TestSQLiteUpsertBarsEmpty(t *testing.T) {
	repo := newTestRepo(t)
	n, err := repo.UpsertBars(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSQLiteInsertQuoteFirstWriteWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 14, 30, 0, 5000, time.UTC)

	inserted, err := repo.InsertQuote(ctx, model.Quote{Timestamp: ts, Symbol: "AAPL", Bid: model.Float(189.1), Ask: model.Float(189.2)})
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = repo.InsertQuote(ctx, model.Quote{Timestamp: ts, Symbol: "AAPL", Bid: model.Float(190.0), Ask: model.Float(190.5)})
	require.NoError(t, err)
	require.False(t, inserted)

	var bid, ask float64
	var last sql.NullFloat64
	require.NoError(t, repo.db.QueryRowContext(ctx,
		`SELECT bid, ask, last FROM ticks WHERE symbol=?`, "AAPL").Scan(&bid, &ask, &last))
	require.Equal(t, 189.1, bid)
	require.Equal(t, 189.2, ask)
	require.False(t, last.Valid)
}

func TestSQLiteInsertQuoteConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)

	var wg sync.WaitGroup
	results := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := repo.InsertQuote(ctx, model.Quote{Timestamp: ts, Symbol: "NVDA", Last: model.Float(float64(i))})
			if err == nil {
				results <- ok
			}
		}(i)
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	require.Equal(t, 1, winners)
}

func TestSQLiteInsertHeadline(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	h := model.Headline{
		Timestamp: time.Date(2024, 4, 30, 21, 5, 0, 0, time.UTC),
		Source:    "reuters",
		Title:     "NVDA beats",
		Symbols:   []model.Symbol{"NVDA"},
		Sentiment: model.Float(0.4215),
		URL:       "https://example.com/a",
	}

	ok, err := repo.InsertHeadline(ctx, h)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.InsertHeadline(ctx, h)
	require.NoError(t, err)
	require.False(t, ok)

	h.Title = "markets drift"
	h.Symbols = nil
	h.Sentiment = nil
	ok, err = repo.InsertHeadline(ctx, h)
	require.NoError(t, err)
	require.True(t, ok)

	var sym sql.NullString
	require.NoError(t, repo.db.QueryRowContext(ctx, `SELECT symbol FROM news WHERE headline=?`, "markets drift").Scan(&sym))
	require.False(t, sym.Valid)
}

func TestSQLiteCloseIdempotent(t *testing.T) {
	repo, err := New(filepath.Join(t.TempDir(), "close.db"))
	require.NoError(t, err)
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())
}
