package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mdingest/internal/application/port"
	"mdingest/internal/domain"
	"mdingest/internal/domain/model"
)

const (
	upsertBarSQL = `
INSERT INTO candles(date, symbol, open, high, low, close, volume)
VALUES($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (date, symbol) DO UPDATE SET
open=excluded.open, high=excluded.high, low=excluded.low, close=excluded.close, volume=excluded.volume`

	insertQuoteSQL = `
INSERT INTO ticks(ts, symbol, bid, ask, last, size)
VALUES($1, $2, $3, $4, $5, $6)
ON CONFLICT (ts, symbol) DO NOTHING`

	insertHeadlineSQL = `
INSERT INTO news(ts, source, headline, symbol, sentiment, url)
VALUES($1, $2, $3, $4, $5, $6)
ON CONFLICT DO NOTHING`
)

// Repo is the Postgres sink. The pool is owned exclusively by Repo.
// Schema is managed outside this process (see deploy/schema.sql).
type Repo struct {
	pool      *pgxpool.Pool
	closeOnce sync.Once
}

// New opens a bounded pool and pings it. An unreachable store is an error.
func New(ctx context.Context, dsn string, minConns, maxConns int) (*Repo, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, domain.ConfigErrorf("parse dsn: %v", err)
	}
	if minConns > 0 {
		cfg.MinConns = int32(minConns)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, domain.StorageError("open pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, domain.StorageError("ping", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() error {
	r.closeOnce.Do(r.pool.Close)
	return nil
}

func (r *Repo) UpsertBars(ctx context.Context, rows []model.Bar) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	rows = model.CollapseBars(rows)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, domain.StorageError("acquire", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, domain.StorageError("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, b := range rows {
		batch.Queue(upsertBarSQL, b.Date, string(b.Symbol), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	br := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, domain.StorageError("upsert candles", err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, domain.StorageError("upsert candles", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, domain.StorageError("commit candles", err)
	}
	return len(rows), nil
}

func (r *Repo) InsertQuote(ctx context.Context, q model.Quote) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, domain.StorageError("acquire", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, insertQuoteSQL, q.Timestamp.UTC(), string(q.Symbol), q.Bid, q.Ask, q.Last, q.Size)
	if err != nil {
		return false, domain.StorageError("insert tick", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repo) InsertHeadline(ctx context.Context, h model.Headline) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, domain.StorageError("acquire", err)
	}
	defer conn.Release()

	// text[] column; nil stays NULL
	var symbols []string
	if len(h.Symbols) > 0 {
		symbols = make([]string, len(h.Symbols))
		for i, s := range h.Symbols {
			symbols[i] = string(s)
		}
	}
	tag, err := conn.Exec(ctx, insertHeadlineSQL, h.Timestamp.UTC(), h.Source, h.Title, symbols, h.Sentiment, h.URL)
	if err != nil {
		return false, domain.StorageError("insert news", err)
	}
	return tag.RowsAffected() == 1, nil
}

var _ port.Sink = (*Repo)(nil)
