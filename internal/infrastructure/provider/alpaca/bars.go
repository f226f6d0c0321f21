package alpaca

import (
	"context"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"mdingest/internal/application/port"
	"mdingest/internal/domain"
	"mdingest/internal/domain/model"
)

const Name = "alpaca"

type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// BarSource fetches daily bars through the Alpaca market data REST API.
type BarSource struct {
	client barsClient
	feed   marketdata.Feed
}

func NewBarSource(apiKey, apiSecret, baseURL, feed string, timeout time.Duration) *BarSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if baseURL != "" {
		opts.BaseURL = baseURL
	}
	if timeout > 0 {
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &BarSource{client: marketdata.NewClient(opts), feed: marketdata.Feed(feed)}
}

func (s *BarSource) Name() string { return Name }

// FetchBars returns one long-name record per bar. Alpaca's End is exclusive for
// daily bars, so one day is added to include r.End itself.
func (s *BarSource) FetchBars(ctx context.Context, symbol model.Symbol, interval string, r model.DateRange) ([]port.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.FetchError(Name, "get bars", err)
	}
	tf, err := timeFrame(interval)
	if err != nil {
		return nil, err
	}

	type result struct {
		bars []marketdata.Bar
		err  error
	}
	done := make(chan result, 1)
	go func() {
		bars, err := s.client.GetBars(string(symbol), marketdata.GetBarsRequest{
			TimeFrame: tf,
			Start:     r.Start,
			End:       r.End.AddDate(0, 0, 1),
			Feed:      s.feed,
		})
		done <- result{bars: bars, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, domain.FetchError(Name, "get bars", ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return nil, domain.FetchError(Name, "get bars", res.err)
	}

	out := make([]port.RawRecord, 0, len(res.bars))
	for _, b := range res.bars {
		out = append(out, port.RawRecord{
			"timestamp":   b.Timestamp,
			"open":        b.Open,
			"high":        b.High,
			"low":         b.Low,
			"close":       b.Close,
			"volume":      float64(b.Volume),
			"trade_count": float64(b.TradeCount),
		})
	}
	return out, nil
}

func timeFrame(interval string) (marketdata.TimeFrame, error) {
	switch interval {
	case "", "1Day":
		return marketdata.OneDay, nil
	}
	return marketdata.TimeFrame{}, domain.ConfigErrorf("alpaca: unsupported interval %q", interval)
}

var _ port.BarSource = (*BarSource)(nil)
