package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"mdingest/internal/application/port"
)

// Opener builds the sink. It is called at most once per successful open.
type Opener func(ctx context.Context) (port.Sink, error)

type sinkRef struct{ sink port.Sink }

// SharedSink is a once-initialized sink handle shared by every callback.
// Readers take the atomic fast path; the first caller opens under the mutex
// while concurrent callers wait. A failed open is not cached.
type SharedSink struct {
	open   Opener
	mu     sync.Mutex
	ref    atomic.Pointer[sinkRef]
	opens  atomic.Int32
	closed bool
}

func NewSharedSink(open Opener) *SharedSink {
	return &SharedSink{open: open}
}

var ErrSinkClosed = errors.New("stream: sink closed")

// Get returns the shared sink, opening it on first use.
func (h *SharedSink) Get(ctx context.Context) (port.Sink, error) {
	if r := h.ref.Load(); r != nil {
		return r.sink, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if r := h.ref.Load(); r != nil {
		return r.sink, nil
	}
	if h.closed {
		return nil, ErrSinkClosed
	}
	sink, err := h.open(ctx)
	if err != nil {
		return nil, err
	}
	h.opens.Add(1)
	h.ref.Store(&sinkRef{sink: sink})
	return sink, nil
}

// Opens reports how many times the opener succeeded.
func (h *SharedSink) Opens() int { return int(h.opens.Load()) }

// Close closes the sink if it was opened. Later Gets fail.
func (h *SharedSink) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	r := h.ref.Swap(nil)
	if r == nil {
		return nil
	}
	return r.sink.Close()
}
