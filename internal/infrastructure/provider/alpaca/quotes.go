package alpaca

import (
	"context"
	"errors"
	"sync"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
	"github.com/rs/zerolog/log"

	"mdingest/internal/application/port"
	"mdingest/internal/domain"
)

type stocksClient interface {
	Connect(ctx context.Context) error
	Terminated() <-chan error
}

type clientBuilder func(handler func(stream.Quote), symbols []string) stocksClient

// QuoteStream subscribes to Alpaca's real-time quote feed over one connection.
type QuoteStream struct {
	build clientBuilder

	mu      sync.Mutex
	handler port.QuoteHandler
	symbols []string
}

func NewQuoteStream(apiKey, apiSecret, feed, streamURL string) *QuoteStream {
	return &QuoteStream{
		build: func(handler func(stream.Quote), symbols []string) stocksClient {
			opts := []stream.StockOption{
				stream.WithCredentials(apiKey, apiSecret),
				stream.WithQuotes(handler, symbols...),
			}
			if streamURL != "" {
				opts = append(opts, stream.WithBaseURL(streamURL))
			}
			return stream.NewStocksClient(marketdata.Feed(feed), opts...)
		},
	}
}

func (s *QuoteStream) Name() string { return Name }

func (s *QuoteStream) SubscribeQuotes(handler port.QuoteHandler, symbols ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
	s.symbols = append(s.symbols, symbols...)
}

// Run connects, subscribes every registered symbol and blocks until the
// connection terminates or ctx is cancelled. A dropped connection is returned
// as a fetch error; it is not retried here.
func (s *QuoteStream) Run(ctx context.Context) error {
	s.mu.Lock()
	handler, symbols := s.handler, append([]string(nil), s.symbols...)
	s.mu.Unlock()
	if handler == nil || len(symbols) == 0 {
		return domain.ConfigErrorf("alpaca: no quote subscription registered")
	}

	client := s.build(func(q stream.Quote) { handler(quoteRecord(q)) }, symbols)
	log.Info().Str("feed", Name).Strs("symbols", symbols).Msg("stream connecting")
	if err := client.Connect(ctx); err != nil {
		return domain.FetchError(Name, "connect", err)
	}
	log.Info().Str("feed", Name).Msg("stream subscribed")

	select {
	case <-ctx.Done():
		<-client.Terminated()
		return nil
	case err := <-client.Terminated():
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("connection closed")
		}
		return domain.FetchError(Name, "stream", err)
	}
}

func quoteRecord(q stream.Quote) port.RawRecord {
	return port.RawRecord{
		"symbol":    q.Symbol,
		"timestamp": q.Timestamp,
		"bid_price": q.BidPrice,
		"ask_price": q.AskPrice,
		"bid_size":  float64(q.BidSize),
		"ask_size":  float64(q.AskSize),
	}
}

var _ port.QuoteStream = (*QuoteStream)(nil)
