package storage

import (
	"context"
	"sync"
	"time"

	"mdingest/internal/application/port"
	"mdingest/internal/domain/model"
)

type quoteKey struct {
	ts     time.Time
	symbol model.Symbol
}

type headlineKey struct {
	ts    time.Time
	title string
}

// MemorySink applies the same conflict policies as the SQL sinks without a database.
// Used for dry runs.
type MemorySink struct {
	mu        sync.Mutex
	bars      map[model.BarKey]model.Bar
	quotes    map[quoteKey]model.Quote
	headlines map[headlineKey]model.Headline
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		bars:      make(map[model.BarKey]model.Bar),
		quotes:    make(map[quoteKey]model.Quote),
		headlines: make(map[headlineKey]model.Headline),
	}
}

func (s *MemorySink) UpsertBars(ctx context.Context, rows []model.Bar) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	rows = model.CollapseBars(rows)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range rows {
		s.bars[b.Key()] = b
	}
	return len(rows), nil
}

func (s *MemorySink) InsertQuote(ctx context.Context, q model.Quote) (bool, error) {
	k := quoteKey{ts: q.Timestamp.UTC(), symbol: q.Symbol}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quotes[k]; ok {
		return false, nil
	}
	s.quotes[k] = q
	return true, nil
}

func (s *MemorySink) InsertHeadline(ctx context.Context, h model.Headline) (bool, error) {
	k := headlineKey{ts: h.Timestamp.UTC(), title: h.Title}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.headlines[k]; ok {
		return false, nil
	}
	s.headlines[k] = h
	return true, nil
}

// Bar returns the stored candle for key.
func (s *MemorySink) Bar(key model.BarKey) (model.Bar, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bars[key]
	return b, ok
}

// Counts reports stored rows per table.
func (s *MemorySink) Counts() (bars, quotes, headlines int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bars), len(s.quotes), len(s.headlines)
}

func (s *MemorySink) Close() error { return nil }

var _ port.Sink = (*MemorySink)(nil)
