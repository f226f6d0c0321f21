package port

import (
	"context"

	"mdingest/internal/domain/model"
)

// BarSink merges daily candles keyed on (date, symbol).
// Within one batch the last occurrence of a key wins.
type BarSink interface {
	// UpsertBars writes rows in one round-trip and returns the number of distinct keys written.
	// An empty batch returns 0 without touching the store.
	UpsertBars(ctx context.Context, rows []model.Bar) (int, error)
}

// QuoteSink keeps the first observation per (ts, symbol).
type QuoteSink interface {
	// InsertQuote reports false when a row with the same key already existed.
	InsertQuote(ctx context.Context, q model.Quote) (bool, error)
}

type HeadlineSink interface {
	InsertHeadline(ctx context.Context, h model.Headline) (bool, error)
}

// Sink is a pooled store handle. Close is idempotent.
type Sink interface {
	BarSink
	QuoteSink
	HeadlineSink
	Close() error
}

// QuotePublisher forwards newly stored quotes to downstream consumers.
type QuotePublisher interface {
	PublishQuote(ctx context.Context, q model.Quote) error
	Close() error
}
