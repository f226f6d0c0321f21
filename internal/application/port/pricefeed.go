package port

import (
	"context"

	"mdingest/internal/domain/model"
)

// RawRecord is a provider payload before normalization. Field names are
// provider specific (short "o"/"h" or long "open"/"high").
type RawRecord map[string]any

// BarSource is the historical bar provider.
type BarSource interface {
	Name() string
	// FetchBars returns bars for [r.Start, r.End] inclusive. An empty slice is not an error.
	FetchBars(ctx context.Context, symbol model.Symbol, interval string, r model.DateRange) ([]RawRecord, error)
}

// QuoteHandler receives one streamed event. It may be called from several goroutines.
type QuoteHandler func(RawRecord)

// QuoteStream is the push quote provider.
type QuoteStream interface {
	Name() string
	// SubscribeQuotes registers handler for symbols. Must be called before Run.
	SubscribeQuotes(handler QuoteHandler, symbols ...string)
	// Run connects and blocks until ctx is done or the connection ends.
	// It never reconnects.
	Run(ctx context.Context) error
}

type HeadlineSource interface {
	Name() string
	FetchHeadlines(ctx context.Context) ([]RawRecord, error)
}

// SentimentScorer maps a headline to a score. Implementations live outside this module.
type SentimentScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

type TickerExtractor interface {
	Extract(text string) []model.Symbol
}
