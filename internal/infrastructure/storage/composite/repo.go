package composite

import (
	"context"

	"github.com/rs/zerolog/log"

	"mdingest/internal/application/port"
	"mdingest/internal/domain/model"
)

// Repo wraps the primary sink and forwards newly inserted quotes to publishers.
// Only the primary sink decides the write outcome.
type Repo struct {
	port.Sink
	publishers []port.QuotePublisher
}

func New(primary port.Sink, publishers ...port.QuotePublisher) *Repo {
	// nil publishers are allowed; filter in constructor for safety
	out := make([]port.QuotePublisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	return &Repo{Sink: primary, publishers: out}
}

func (r *Repo) InsertQuote(ctx context.Context, q model.Quote) (bool, error) {
	inserted, err := r.Sink.InsertQuote(ctx, q)
	if err != nil || !inserted {
		return inserted, err
	}
	for _, p := range r.publishers {
		if perr := p.PublishQuote(ctx, q); perr != nil {
			log.Warn().Err(perr).Str("symbol", string(q.Symbol)).Msg("quote publish failed")
		}
	}
	return true, nil
}

// Close closes the primary sink then every publisher, returning the first error.
func (r *Repo) Close() error {
	firstErr := r.Sink.Close()
	for _, p := range r.publishers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.Sink = (*Repo)(nil)
