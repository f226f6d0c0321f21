package model

import "time"

// Quote is a point-in-time observation. Natural key is (Timestamp, Symbol);
// the first stored observation for a key is kept.
//
// Bid, Ask, Last and Size are nil when the feed does not carry them.
// Last and Size describe the last trade; quote-only feeds leave both nil.
type Quote struct {
	Timestamp time.Time
	Symbol    Symbol
	Bid       *float64
	Ask       *float64
	Last      *float64
	Size      *float64
}

// Mid is derived on demand and is never stored.
func (q Quote) Mid() (float64, bool) {
	if q.Bid == nil || q.Ask == nil {
		return 0, false
	}
	return (*q.Bid + *q.Ask) / 2, true
}

// Float returns a pointer to v, for building optional quote fields.
func Float(v float64) *float64 { return &v }
