package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mdingest/internal/application/port"
	"mdingest/internal/domain"
	"mdingest/internal/domain/model"
)

func TestNormalizeBarLongNames(t *testing.T) {
	rec := port.RawRecord{
		"timestamp":   time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC),
		"open":        187.15,
		"high":        188.44,
		"low":         183.89,
		"close":       185.64,
		"volume":      uint64(82488700),
		"trade_count": uint64(1009074),
	}

	bar, err := NormalizeBar(rec, "AAPL")
	require.NoError(t, err)
	require.Equal(t, model.Bar{
		Date:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Symbol: "AAPL",
		Open:   187.15,
		High:   188.44,
		Low:    183.89,
		Close:  185.64,
		Volume: 82488700,
	}, bar)
}

func TestNormalizeBarShortNames(t *testing.T) {
	rec := port.RawRecord{
		"t": float64(1704153600),
		"o": json.Number("187.15"),
		"h": 188.44,
		"l": "183.89",
		"c": 185.64,
		"v": 1000,
	}

	bar, err := NormalizeBar(rec, "AAPL")
	require.NoError(t, err)
	require.Equal(t, "2024-01-02", bar.DateString())
	require.Equal(t, 187.15, bar.Open)
	require.Equal(t, 183.89, bar.Low)
	require.Equal(t, 1000.0, bar.Volume)
}

func TestNormalizeBarMalformed(t *testing.T) {
	base := func() port.RawRecord {
		return port.RawRecord{"t": "2024-01-02", "o": 1.0, "h": 2.0, "l": 0.5, "c": 1.5, "v": 10.0}
	}

	cases := []struct {
		name  string
		edit  func(port.RawRecord)
		field string
	}{
		{"missing open", func(r port.RawRecord) { delete(r, "o") }, "open"},
		{"non numeric high", func(r port.RawRecord) { r["h"] = "n/a" }, "high"},
		{"nil close", func(r port.RawRecord) { r["c"] = nil }, "close"},
		{"missing volume", func(r port.RawRecord) { delete(r, "v") }, "volume"},
		{"bad timestamp", func(r port.RawRecord) { r["t"] = "yesterday" }, "timestamp"},
		{"missing timestamp", func(r port.RawRecord) { delete(r, "t") }, "timestamp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := base()
			tc.edit(rec)
			_, err := NormalizeBar(rec, "AAPL")
			require.ErrorIs(t, err, domain.ErrMalformedRecord)

			var mre *domain.MalformedRecordError
			require.True(t, errors.As(err, &mre))
			require.Equal(t, tc.field, mre.Field)
		})
	}
}

func TestNormalizeBarZeroVolumeSession(t *testing.T) {
	rec := port.RawRecord{"t": "2024-01-02", "o": 1.0, "h": 1.0, "l": 1.0, "c": 1.0, "n": 0}
	bar, err := NormalizeBar(rec, "AAPL")
	require.NoError(t, err)
	require.Zero(t, bar.Volume)

	rec = port.RawRecord{"t": "2024-01-02", "o": 1.0, "h": 1.0, "l": 1.0, "c": 1.0, "zero_volume": true}
	bar, err = NormalizeBar(rec, "AAPL")
	require.NoError(t, err)
	require.Zero(t, bar.Volume)

	rec = port.RawRecord{"t": "2024-01-02", "o": 1.0, "h": 1.0, "l": 1.0, "c": 1.0, "n": 12}
	_, err = NormalizeBar(rec, "AAPL")
	require.ErrorIs(t, err, domain.ErrMalformedRecord)
}

func TestNormalizeQuoteBidAsk(t *testing.T) {
	ts := time.Date(2024, 5, 1, 14, 30, 0, 123000000, time.UTC)
	rec := port.RawRecord{
		"symbol":    "msft",
		"timestamp": ts,
		"bid_price": 410.1,
		"ask_price": 410.3,
		"bid_size":  uint32(2),
	}

	q, err := NormalizeQuote(rec)
	require.NoError(t, err)
	require.Equal(t, model.Symbol("MSFT"), q.Symbol)
	require.Equal(t, ts, q.Timestamp)
	require.Equal(t, 410.1, *q.Bid)
	require.Equal(t, 410.3, *q.Ask)
	require.Nil(t, q.Last)
	require.Nil(t, q.Size)
}

func TestNormalizeQuoteTrade(t *testing.T) {
	rec := port.RawRecord{"s": "AAPL", "p": 189.5, "t": float64(1714573800123), "v": 100.0}

	q, err := NormalizeQuote(rec)
	require.NoError(t, err)
	require.Equal(t, time.UnixMilli(1714573800123).UTC(), q.Timestamp)
	require.Nil(t, q.Bid)
	require.Nil(t, q.Ask)
	require.Equal(t, 189.5, *q.Last)
	require.Equal(t, 100.0, *q.Size)
}

func TestNormalizeQuoteMalformed(t *testing.T) {
	_, err := NormalizeQuote(port.RawRecord{"s": "AAPL", "t": float64(1714573800123)})
	require.ErrorIs(t, err, domain.ErrMalformedRecord)

	_, err = NormalizeQuote(port.RawRecord{"p": 1.0, "t": float64(1714573800123)})
	require.ErrorIs(t, err, domain.ErrMalformedRecord)

	_, err = NormalizeQuote(port.RawRecord{"s": "AAPL", "p": 1.0})
	require.ErrorIs(t, err, domain.ErrMalformedRecord)

	_, err = NormalizeQuote(port.RawRecord{"s": "AAPL", "p": "x", "t": float64(1714573800123)})
	require.ErrorIs(t, err, domain.ErrMalformedRecord)
}

func TestNormalizeHeadline(t *testing.T) {
	fallback := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	h, err := NormalizeHeadline(port.RawRecord{
		"title":     " NVDA beats estimates ",
		"pubDate":   "2024-04-30 21:05:00",
		"source_id": "reuters",
		"link":      "https://example.com/a",
	}, fallback)
	require.NoError(t, err)
	require.Equal(t, "NVDA beats estimates", h.Title)
	require.Equal(t, time.Date(2024, 4, 30, 21, 5, 0, 0, time.UTC), h.Timestamp)
	require.Equal(t, "reuters", h.Source)
	require.Equal(t, "https://example.com/a", h.URL)

	h, err = NormalizeHeadline(port.RawRecord{"title": "x", "pubDate": "garbage"}, fallback)
	require.NoError(t, err)
	require.Equal(t, fallback, h.Timestamp)
	require.Equal(t, "newsdata", h.Source)

	_, err = NormalizeHeadline(port.RawRecord{"link": "https://example.com"}, fallback)
	require.ErrorIs(t, err, domain.ErrMalformedRecord)
}

func TestRegexTickerExtractor(t *testing.T) {
	var x RegexTickerExtractor
	require.Equal(t, []model.Symbol{"NVDA", "AMD"}, x.Extract("NVDA and AMD rally as NVDA guides up"))
	require.Nil(t, x.Extract("markets drift lower"))
}
