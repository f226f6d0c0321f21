package backfill

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

// State of a backfill run.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateNormalizing
	StateStoring
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateNormalizing:
		return "normalizing"
	case StateStoring:
		return "storing"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Sink is the bar sink owned by the run; it is closed when the run ends.
type Sink interface {
	port.BarSink
	Close() error
}

type ServiceDeps struct {
	Source        port.BarSource
	Sink          Sink
	Universe      model.SymbolUniverse
	Interval      string
	LookbackYears int
	FetchTimeout  time.Duration
	WriteTimeout  time.Duration
	Now           func() time.Time
}

// Service runs one sequential pass over the universe.
type Service struct {
	deps  ServiceDeps
	state atomic.Int32
}

func NewService(deps ServiceDeps) *Service {
	if deps.Interval == "" {
		deps.Interval = "1Day"
	}
	if deps.LookbackYears <= 0 {
		deps.LookbackYears = model.DefaultLookbackYears
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

func (s *Service) State() State { return State(s.state.Load()) }

func (s *Service) setState(st State) { s.state.Store(int32(st)) }

// Run fetches, normalizes and stores each symbol in order. A failing symbol is recorded
// and skipped; the run only stops early when ctx is cancelled. The sink is closed before
// Run returns.
func (s *Service) Run(ctx context.Context) (*RunSummary, error) {
	if s.deps.Source == nil || s.deps.Sink == nil {
		return nil, errors.New("backfill: source and sink are required")
	}

	start := s.deps.Now()
	sum := &RunSummary{
		Started: start,
		Range:   model.LookbackRange(start, s.deps.LookbackYears),
	}
	log.Info().
		Str("provider", s.deps.Source.Name()).
		Str("range", sum.Range.String()).
		Int("symbols", s.deps.Universe.Len()).
		Msg("backfill run started")

	var runErr error
	for _, sym := range s.deps.Universe.Symbols() {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		out := s.runSymbol(ctx, sym, sum.Range)
		sum.Outcomes = append(sum.Outcomes, out)
		logOutcome(out)
	}

	if err := s.deps.Sink.Close(); err != nil {
		log.Error().Err(err).Msg("closing sink failed")
		if runErr == nil {
			runErr = domain.StorageError("close", err)
		}
	}
	s.setState(StateDone)
	sum.Finished = s.deps.Now()
	sum.Log()
	return sum, runErr
}

func (s *Service) runSymbol(ctx context.Context, sym model.Symbol, r model.DateRange) SymbolOutcome {
	out := SymbolOutcome{Symbol: sym}

	s.setState(StateFetching)
	fctx, cancel := withTimeout(ctx, s.deps.FetchTimeout)
	records, err := s.deps.Source.FetchBars(fctx, sym, s.deps.Interval, r)
	cancel()
	if err != nil {
		if !errors.Is(err, domain.ErrProviderFetch) {
			err = domain.FetchError(s.deps.Source.Name(), "get bars", err)
		}
		out.Status, out.Err, out.ErrClass = StatusFetchFailed, err, domain.Classify(err)
		return out
	}
	out.Fetched = len(records)
	if len(records) == 0 {
		out.Status = StatusEmpty
		return out
	}

	s.setState(StateNormalizing)
	rows := make([]model.Bar, 0, len(records))
	for _, rec := range records {
		bar, err := service.NormalizeBar(rec, sym)
		if err != nil {
			out.Malformed++
			log.Debug().Str("symbol", string(sym)).Err(err).Msg("malformed bar dropped")
			continue
		}
		rows = append(rows, bar)
	}
	if len(rows) == 0 {
		out.Status = StatusEmpty
		out.ErrClass = domain.ClassMalformedRecord
		return out
	}

	s.setState(StateStoring)
	wctx, cancel := withTimeout(ctx, s.deps.WriteTimeout)
	n, err := s.deps.Sink.UpsertBars(wctx, rows)
	cancel()
	if err != nil {
		if !errors.Is(err, domain.ErrStorage) {
			err = domain.StorageError("upsert bars", err)
		}
		out.Status, out.Err, out.ErrClass = StatusStoreFailed, err, domain.Classify(err)
		return out
	}
	out.Status = StatusStored
	out.Stored = n
	return out
}

func logOutcome(o SymbolOutcome) {
	switch o.Status {
	case StatusStored:
		log.Info().Str("symbol", string(o.Symbol)).Int("fetched", o.Fetched).Int("malformed", o.Malformed).
			Int("stored", o.Stored).Msg("bars stored")
	case StatusEmpty:
		log.Debug().Str("symbol", string(o.Symbol)).Int("malformed", o.Malformed).Msg("no bars, skipped")
	default:
		log.Warn().Str("symbol", string(o.Symbol)).Str("status", string(o.Status)).Str("class", o.ErrClass).
			Err(o.Err).Msg("symbol skipped")
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
