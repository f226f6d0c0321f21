package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"mdingest/internal/application/port"
	"mdingest/internal/domain"
	"mdingest/internal/domain/model"
)

const (
	dateLayout = "2006-01-02"
	tsLayout   = "2006-01-02T15:04:05.000000000Z"
)

// Repo is the local SQLite sink used for development and tests.
// A single connection serialises writers; conflict handling is still done by SQLite itself.
type Repo struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, domain.StorageError("open sqlite", err)
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, domain.StorageError("migrate sqlite", err)
	}
	return r, nil
}

func (r *Repo) Close() error {
	r.closeOnce.Do(func() { r.closeErr = r.db.Close() })
	return r.closeErr
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS candles (
  date TEXT NOT NULL,
  symbol TEXT NOT NULL,
  open REAL NOT NULL,
  high REAL NOT NULL,
  low REAL NOT NULL,
  close REAL NOT NULL,
  volume REAL NOT NULL,
  UNIQUE(date, symbol)
);
CREATE INDEX IF NOT EXISTS idx_candles_symbol ON candles(symbol);

CREATE TABLE IF NOT EXISTS ticks (
  ts TEXT NOT NULL,
  symbol TEXT NOT NULL,
  bid REAL,
  ask REAL,
  last REAL,
  size REAL,
  UNIQUE(ts, symbol)
);
CREATE INDEX IF NOT EXISTS idx_ticks_symbol ON ticks(symbol);

CREATE TABLE IF NOT EXISTS news (
  ts TEXT NOT NULL,
  source TEXT NOT NULL,
  headline TEXT NOT NULL,
  symbol TEXT,
  sentiment REAL,
  url TEXT NOT NULL,
  UNIQUE(ts, headline)
);
`)
	return err
}

func (r *Repo) UpsertBars(ctx context.Context, rows []model.Bar) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	rows = model.CollapseBars(rows)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.StorageError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles(date, symbol, open, high, low, close, volume)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, symbol) DO UPDATE SET
		open=excluded.open, high=excluded.high, low=excluded.low, close=excluded.close, volume=excluded.volume
	`)
	if err != nil {
		return 0, domain.StorageError("prepare candles", err)
	}
	defer stmt.Close()

	for _, b := range rows {
		if _, err := stmt.ExecContext(ctx, b.DateString(), string(b.Symbol), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return 0, domain.StorageError("upsert candles", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, domain.StorageError("commit candles", err)
	}
	return len(rows), nil
}

func (r *Repo) InsertQuote(ctx context.Context, q model.Quote) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ticks(ts, symbol, bid, ask, last, size)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(ts, symbol) DO NOTHING
	`, formatTS(q.Timestamp), string(q.Symbol), nullable(q.Bid), nullable(q.Ask), nullable(q.Last), nullable(q.Size))
	if err != nil {
		return false, domain.StorageError("insert tick", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.StorageError("insert tick", err)
	}
	return n == 1, nil
}

func (r *Repo) InsertHeadline(ctx context.Context, h model.Headline) (bool, error) {
	var symbols sql.NullString
	if len(h.Symbols) > 0 {
		parts := make([]string, len(h.Symbols))
		for i, s := range h.Symbols {
			parts[i] = string(s)
		}
		symbols = sql.NullString{String: strings.Join(parts, ","), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO news(ts, source, headline, symbol, sentiment, url)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, formatTS(h.Timestamp), h.Source, h.Title, symbols, nullable(h.Sentiment), h.URL)
	if err != nil {
		return false, domain.StorageError("insert news", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.StorageError("insert news", err)
	}
	return n == 1, nil
}

// formatTS keeps a fixed width so text ordering matches time ordering.
func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

var _ port.Sink = (*Repo)(nil)
