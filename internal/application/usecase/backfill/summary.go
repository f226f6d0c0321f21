package backfill

import (
	"time"

	"github.com/rs/zerolog/log"

	"mdingest/internal/domain/model"
)

// Status is the outcome of one symbol in a run.
type Status string

const (
	StatusStored      Status = "stored"
	StatusEmpty       Status = "empty"
	StatusFetchFailed Status = "fetch_failed"
	StatusStoreFailed Status = "store_failed"
)

// SymbolOutcome records what happened to one symbol.
type SymbolOutcome struct {
	Symbol    model.Symbol
	Status    Status
	Fetched   int
	Malformed int
	Stored    int
	ErrClass  string
	Err       error
}

// RunSummary aggregates the outcomes of one full pass over the universe.
type RunSummary struct {
	Started  time.Time
	Finished time.Time
	Range    model.DateRange
	Outcomes []SymbolOutcome
}

// Count returns how many symbols ended with status st.
func (s *RunSummary) Count(st Status) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == st {
			n++
		}
	}
	return n
}

func (s *RunSummary) TotalStored() int {
	n := 0
	for _, o := range s.Outcomes {
		n += o.Stored
	}
	return n
}

// Outcome returns the last outcome recorded for sym.
func (s *RunSummary) Outcome(sym model.Symbol) (SymbolOutcome, bool) {
	for i := len(s.Outcomes) - 1; i >= 0; i-- {
		if s.Outcomes[i].Symbol == sym {
			return s.Outcomes[i], true
		}
	}
	return SymbolOutcome{}, false
}

// Log writes one summary line.
func (s *RunSummary) Log() {
	log.Info().
		Str("range", s.Range.String()).
		Int("symbols", len(s.Outcomes)).
		Int("stored_symbols", s.Count(StatusStored)).
		Int("empty", s.Count(StatusEmpty)).
		Int("fetch_failed", s.Count(StatusFetchFailed)).
		Int("store_failed", s.Count(StatusStoreFailed)).
		Int("rows", s.TotalStored()).
		Dur("elapsed", s.Finished.Sub(s.Started)).
		Msg("backfill run finished")
}
