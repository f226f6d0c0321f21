package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"mdingest/internal/application/port"
	"mdingest/internal/domain"
	"mdingest/internal/domain/model"
)

// Provider field aliases. Short names come from compact wire formats, long names from SDK structs.
var (
	barTimeKeys   = []string{"t", "timestamp", "date", "time"}
	barOpenKeys   = []string{"o", "open"}
	barHighKeys   = []string{"h", "high"}
	barLowKeys    = []string{"l", "low"}
	barCloseKeys  = []string{"c", "close"}
	barVolumeKeys = []string{"v", "volume"}
	barTradesKeys = []string{"n", "trade_count"}

	quoteSymbolKeys = []string{"S", "s", "symbol"}
	quoteTimeKeys   = []string{"t", "timestamp"}
	quoteBidKeys    = []string{"bp", "bid_price", "bid"}
	quoteAskKeys    = []string{"ap", "ask_price", "ask"}
	quoteLastKeys   = []string{"p", "price", "last"}
	quoteSizeKeys   = []string{"v", "size"}
)

const zeroVolumeFlag = "zero_volume"

// NormalizeBar maps a provider bar to a canonical daily candle for symbol.
func NormalizeBar(rec port.RawRecord, symbol model.Symbol) (model.Bar, error) {
	if symbol == "" {
		return model.Bar{}, domain.Malformed("symbol", "is empty")
	}
	ts, err := requireTime(rec, barTimeKeys, "timestamp")
	if err != nil {
		return model.Bar{}, err
	}

	var ohlc [4]float64
	for i, f := range []struct {
		name string
		keys []string
	}{
		{"open", barOpenKeys},
		{"high", barHighKeys},
		{"low", barLowKeys},
		{"close", barCloseKeys},
	} {
		v, err := requireNumber(rec, f.keys, f.name)
		if err != nil {
			return model.Bar{}, err
		}
		ohlc[i] = v
	}

	volume, ok, err := optionalNumber(rec, barVolumeKeys, "volume")
	if err != nil {
		return model.Bar{}, err
	}
	if !ok {
		if !zeroVolumeSession(rec) {
			return model.Bar{}, domain.Malformed("volume", "is missing")
		}
		volume = 0
	}

	return model.Bar{
		Date:   model.DateOf(ts),
		Symbol: symbol,
		Open:   ohlc[0],
		High:   ohlc[1],
		Low:    ohlc[2],
		Close:  ohlc[3],
		Volume: volume,
	}, nil
}

// NormalizeQuote maps a streamed event to a quote. The timestamp is the event clock, not
// the receive time. Last and Size stay nil when the event does not carry a trade.
func NormalizeQuote(rec port.RawRecord) (model.Quote, error) {
	raw, ok := lookup(rec, quoteSymbolKeys)
	if !ok {
		return model.Quote{}, domain.Malformed("symbol", "is missing")
	}
	s, _ := raw.(string)
	sym := model.NewSymbol(s)
	if sym == "" {
		return model.Quote{}, domain.Malformed("symbol", "is empty")
	}
	ts, err := requireTime(rec, quoteTimeKeys, "timestamp")
	if err != nil {
		return model.Quote{}, err
	}

	q := model.Quote{Timestamp: ts.UTC(), Symbol: sym}
	for _, f := range []struct {
		name string
		keys []string
		dst  **float64
	}{
		{"bid", quoteBidKeys, &q.Bid},
		{"ask", quoteAskKeys, &q.Ask},
		{"last", quoteLastKeys, &q.Last},
		{"size", quoteSizeKeys, &q.Size},
	} {
		v, ok, err := optionalNumber(rec, f.keys, f.name)
		if err != nil {
			return model.Quote{}, err
		}
		if ok {
			*f.dst = model.Float(v)
		}
	}
	if q.Bid == nil && q.Ask == nil && q.Last == nil {
		return model.Quote{}, domain.Malformed("price", "has no bid, ask or last")
	}
	return q, nil
}

const newsdataTimeLayout = "2006-01-02 15:04:05"

// NormalizeHeadline maps a news API item. Symbols and Sentiment are left for the caller.
// A missing or unparseable publish time falls back to fallback.
func NormalizeHeadline(rec port.RawRecord, fallback time.Time) (model.Headline, error) {
	title, _ := rec["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Headline{}, domain.Malformed("title", "is missing")
	}

	ts := fallback.UTC()
	if v, ok := rec["pubDate"]; ok {
		if t, err := parseTime(v); err == nil {
			ts = t.UTC()
		}
	}

	source, _ := rec["source_id"].(string)
	if source == "" {
		source = "newsdata"
	}
	link, _ := rec["link"].(string)

	return model.Headline{
		Timestamp: ts,
		Source:    source,
		Title:     title,
		URL:       link,
	}, nil
}

func zeroVolumeSession(rec port.RawRecord) bool {
	if flag, ok := rec[zeroVolumeFlag].(bool); ok && flag {
		return true
	}
	n, ok, err := optionalNumber(rec, barTradesKeys, "trade_count")
	return err == nil && ok && n == 0
}

func lookup(rec port.RawRecord, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func requireNumber(rec port.RawRecord, keys []string, field string) (float64, error) {
	v, ok, err := optionalNumber(rec, keys, field)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.Malformed(field, "is missing")
	}
	return v, nil
}

func optionalNumber(rec port.RawRecord, keys []string, field string) (float64, bool, error) {
	raw, ok := lookup(rec, keys)
	if !ok {
		return 0, false, nil
	}
	v, ok := toFloat(raw)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, domain.Malformed(field, "is not numeric")
	}
	return v, true, nil
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func requireTime(rec port.RawRecord, keys []string, field string) (time.Time, error) {
	raw, ok := lookup(rec, keys)
	if !ok {
		return time.Time{}, domain.Malformed(field, "is missing")
	}
	t, err := parseTime(raw)
	if err != nil {
		return time.Time{}, domain.Malformed(field, "is not a time")
	}
	return t, nil
}

var timeLayouts = []string{time.RFC3339Nano, newsdataTimeLayout, "2006-01-02"}

// parseTime accepts time.Time, text timestamps and unix epochs in s, ms, us or ns.
func parseTime(raw any) (time.Time, error) {
	if t, ok := raw.(time.Time); ok {
		if t.IsZero() {
			return time.Time{}, strconv.ErrSyntax
		}
		return t, nil
	}
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t, nil
			}
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return time.Time{}, strconv.ErrSyntax
		}
	}
	f, ok := toFloat(raw)
	if !ok || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, strconv.ErrSyntax
	}
	n := int64(f)
	switch {
	case n >= 1e17:
		return time.Unix(0, n).UTC(), nil
	case n >= 1e14:
		return time.UnixMicro(n).UTC(), nil
	case n >= 1e11:
		return time.UnixMilli(n).UTC(), nil
	default:
		return time.Unix(n, 0).UTC(), nil
	}
}
