package alpaca

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
	"github.com/stretchr/testify/require"

	"mdingest/internal/application/port"
	"mdingest/internal/application/service"
	"mdingest/internal/domain"
	"mdingest/internal/domain/model"
)

type fakeBarsClient struct {
	req  marketdata.GetBarsRequest
	bars []marketdata.Bar
	err  error
}

func (f *fakeBarsClient) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.req = req
	return f.bars, f.err
}

func TestBarSourceFetchBars(t *testing.T) {
	day := time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC)
	fake := &fakeBarsClient{bars: []marketdata.Bar{
		{Timestamp: day, Open: 187.15, High: 188.44, Low: 183.89, Close: 185.64, Volume: 82488700, TradeCount: 1009074},
	}}
	src := &BarSource{client: fake, feed: "iex"}
	r := model.DateRange{Start: time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}

	recs, err := src.FetchBars(context.Background(), "AAPL", "1Day", r)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, r.End.AddDate(0, 0, 1), fake.req.End)
	require.Equal(t, marketdata.OneDay, fake.req.TimeFrame)

	bar, err := service.NormalizeBar(recs[0], "AAPL")
	require.NoError(t, err)
	require.Equal(t, 185.64, bar.Close)
	require.Equal(t, 82488700.0, bar.Volume)
	require.Equal(t, "2024-01-02", bar.DateString())
}

func TestBarSourceFetchError(t *testing.T) {
	src := &BarSource{client: &fakeBarsClient{err: errors.New("403 forbidden")}}
	_, err := src.FetchBars(context.Background(), "AAPL", "1Day", model.DefaultRange(time.Now()))
	require.ErrorIs(t, err, domain.ErrProviderFetch)

	_, err = src.FetchBars(context.Background(), "AAPL", "1Min", model.DefaultRange(time.Now()))
	require.ErrorIs(t, err, domain.ErrConfig)
}

type fakeStocksClient struct {
	handler func(stream.Quote)
	quotes  []stream.Quote
	term    chan error
	dropErr error
}

func (f *fakeStocksClient) Connect(ctx context.Context) error {
	go func() {
		for _, q := range f.quotes {
			f.handler(q)
		}
		if f.dropErr != nil {
			f.term <- f.dropErr
			close(f.term)
			return
		}
		<-ctx.Done()
		close(f.term)
	}()
	return nil
}

func (f *fakeStocksClient) Terminated() <-chan error { return f.term }

func TestQuoteStreamDeliversAndEndsOnDrop(t *testing.T) {
	ts := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)
	var gotSymbols []string
	qs := &QuoteStream{build: func(h func(stream.Quote), symbols []string) stocksClient {
		gotSymbols = symbols
		return &fakeStocksClient{
			handler: h,
			quotes:  []stream.Quote{{Symbol: "AAPL", BidPrice: 189.1, AskPrice: 189.2, BidSize: 3, Timestamp: ts}},
			term:    make(chan error, 1),
			dropErr: errors.New("websocket: close 1006"),
		}
	}}

	var mu sync.Mutex
	var recs []port.RawRecord
	qs.SubscribeQuotes(func(r port.RawRecord) {
		mu.Lock()
		recs = append(recs, r)
		mu.Unlock()
	}, "AAPL", "MSFT")

	err := qs.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrProviderFetch)
	require.Equal(t, []string{"AAPL", "MSFT"}, gotSymbols)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, recs, 1)
	q, err := service.NormalizeQuote(recs[0])
	require.NoError(t, err)
	require.Equal(t, 189.1, *q.Bid)
	require.Nil(t, q.Last)
	require.Equal(t, ts, q.Timestamp)
}

func TestQuoteStreamStopsOnCancel(t *testing.T) {
	qs := &QuoteStream{build: func(h func(stream.Quote), symbols []string) stocksClient {
		return &fakeStocksClient{handler: h, term: make(chan error, 1)}
	}}
	qs.SubscribeQuotes(func(port.RawRecord) {}, "AAPL")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- qs.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestQuoteStreamRequiresSubscription(t *testing.T) {
	qs := NewQuoteStream("k", "s", "iex", "")
	require.ErrorIs(t, qs.Run(context.Background()), domain.ErrConfig)
}
