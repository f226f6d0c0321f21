package stream

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"mdingest/internal/application/port"
	"mdingest/internal/application/service"
	"mdingest/internal/domain"
	"mdingest/internal/domain/model"
)

// State of the push connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
	StateReceiving
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateReceiving:
		return "receiving"
	}
	return "unknown"
}

type ServiceDeps struct {
	Stream       port.QuoteStream
	Sink         *SharedSink
	Universe     model.SymbolUniverse
	WriteTimeout time.Duration
	// EagerOpen opens the sink in Start so an unreachable store fails before subscribing.
	EagerOpen    bool
	StatsEvery   time.Duration
}

type Service struct {
	deps  ServiceDeps
	stats Stats
	state atomic.Int32
	base  atomic.Pointer[context.Context]
}

func NewService(deps ServiceDeps) *Service {
	if deps.WriteTimeout <= 0 {
		deps.WriteTimeout = 10 * time.Second
	}
	return &Service{deps: deps}
}

func (s *Service) State() State { return State(s.state.Load()) }

func (s *Service) Stats() StatsSnapshot { return s.stats.Snapshot() }

// Start subscribes every symbol on one connection and blocks until ctx is done
// or the provider connection ends. It does not reconnect.
func (s *Service) Start(ctx context.Context) error {
	if s.deps.Stream == nil || s.deps.Sink == nil {
		return errors.New("stream: stream and sink are required")
	}
	symbols := s.deps.Universe.Strings()
	if len(symbols) == 0 {
		return domain.ConfigErrorf("stream: empty symbol universe")
	}
	s.base.Store(&ctx)

	if s.deps.EagerOpen {
		octx, cancel := context.WithTimeout(ctx, s.deps.WriteTimeout)
		_, err := s.deps.Sink.Get(octx)
		cancel()
		if err != nil {
			return err
		}
	}

	s.state.Store(int32(StateConnecting))
	s.deps.Stream.SubscribeQuotes(s.HandleEvent, symbols...)
	s.state.Store(int32(StateSubscribed))
	log.Info().Str("provider", s.deps.Stream.Name()).Int("symbols", len(symbols)).Msg("stream starting")

	if s.deps.StatsEvery > 0 {
		go s.reportStats(ctx)
	}

	err := s.deps.Stream.Run(ctx)
	s.state.Store(int32(StateDisconnected))
	st := s.stats.Snapshot()
	log.Info().
		Int64("received", st.Received).
		Int64("inserted", st.Inserted).
		Int64("duplicate", st.Duplicate).
		Int64("malformed", st.Malformed).
		Int64("store_failed", st.StoreFailed).
		Err(err).
		Msg("stream stopped")
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// HandleEvent is the per-event callback. Failures are counted, logged and dropped.
func (s *Service) HandleEvent(rec port.RawRecord) {
	s.stats.received.Add(1)
	s.state.CompareAndSwap(int32(StateSubscribed), int32(StateReceiving))

	q, err := service.NormalizeQuote(rec)
	if err != nil {
		s.stats.malformed.Add(1)
		log.Warn().Err(err).Msg("malformed quote dropped")
		return
	}

	ctx := context.Background()
	if p := s.base.Load(); p != nil {
		ctx = *p
	}
	wctx, cancel := context.WithTimeout(ctx, s.deps.WriteTimeout)
	defer cancel()

	sink, err := s.deps.Sink.Get(wctx)
	if err != nil {
		s.stats.storeFailed.Add(1)
		log.Error().Str("symbol", string(q.Symbol)).Str("class", domain.ClassStorage).Err(err).Msg("sink unavailable, quote dropped")
		return
	}
	inserted, err := sink.InsertQuote(wctx, q)
	if err != nil {
		s.stats.storeFailed.Add(1)
		log.Error().Str("symbol", string(q.Symbol)).Str("class", domain.Classify(err)).Err(err).Msg("quote write failed, dropped")
		return
	}
	if !inserted {
		s.stats.duplicate.Add(1)
		log.Debug().Str("symbol", string(q.Symbol)).Time("ts", q.Timestamp).Msg("duplicate quote ignored")
		return
	}
	s.stats.inserted.Add(1)
}

func (s *Service) reportStats(ctx context.Context) {
	t := time.NewTicker(s.deps.StatsEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := s.stats.Snapshot()
			log.Info().
				Str("state", s.State().String()).
				Int64("received", st.Received).
				Int64("inserted", st.Inserted).
				Int64("duplicate", st.Duplicate).
				Int64("malformed", st.Malformed).
				Int64("store_failed", st.StoreFailed).
				Msg("stream stats")
		}
	}
}
