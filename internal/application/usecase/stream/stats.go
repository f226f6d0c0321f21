package stream

import "sync/atomic"

// Stats counts per-event outcomes. Safe for concurrent use.
type Stats struct {
	received    atomic.Int64
	inserted    atomic.Int64
	duplicate   atomic.Int64
	malformed   atomic.Int64
	storeFailed atomic.Int64
}

type StatsSnapshot struct {
	Received    int64
	Inserted    int64
	Duplicate   int64
	Malformed   int64
	StoreFailed int64
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Received:    s.received.Load(),
		Inserted:    s.inserted.Load(),
		Duplicate:   s.duplicate.Load(),
		Malformed:   s.malformed.Load(),
		StoreFailed: s.storeFailed.Load(),
	}
}
