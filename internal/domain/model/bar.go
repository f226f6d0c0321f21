package model

import "time"

// Bar is a daily candle. Natural key is (Date, Symbol); re-fetches overwrite OHLCV.
type Bar struct {
	Date   time.Time
	Symbol Symbol
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// BarKey identifies a candle row.
type BarKey struct {
	Date   string
	Symbol Symbol
}

func (b Bar) Key() BarKey {
	return BarKey{Date: b.Date.Format(dateLayout), Symbol: b.Symbol}
}

// DateString renders Date as YYYY-MM-DD.
func (b Bar) DateString() string { return b.Date.Format(dateLayout) }

// CollapseBars drops earlier duplicates of the same key so the last occurrence wins.
// The surviving rows keep the order of their last occurrence.
func CollapseBars(rows []Bar) []Bar {
	if len(rows) < 2 {
		return rows
	}
	last := make(map[BarKey]int, len(rows))
	for i, r := range rows {
		last[r.Key()] = i
	}
	if len(last) == len(rows) {
		return rows
	}
	out := make([]Bar, 0, len(last))
	for i, r := range rows {
		if last[r.Key()] == i {
			out = append(out, r)
		}
	}
	return out
}
