package news

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"mdingest/internal/application/port"
	"mdingest/internal/application/service"
	"mdingest/internal/domain"
)

type ServiceDeps struct {
	Source       port.HeadlineSource
	Sink         port.HeadlineSink
	Extractor    port.TickerExtractor
	Scorer       port.SentimentScorer // optional; nil stores NULL sentiment
	PollInterval time.Duration
	WriteTimeout time.Duration
	Now          func() time.Time
}

// PollResult counts the outcome of one poll.
type PollResult struct {
	Fetched   int
	Inserted  int
	Duplicate int
	Skipped   int
	Failed    int
}

type Service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) *Service {
	if deps.PollInterval <= 0 {
		deps.PollInterval = 60 * time.Second
	}
	if deps.WriteTimeout <= 0 {
		deps.WriteTimeout = 10 * time.Second
	}
	if deps.Extractor == nil {
		deps.Extractor = service.RegexTickerExtractor{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// Run polls immediately and then every PollInterval until ctx is done.
// Poll errors are logged and the loop continues.
func (s *Service) Run(ctx context.Context) error {
	if s.deps.Source == nil || s.deps.Sink == nil {
		return errors.New("news: source and sink are required")
	}
	log.Info().Str("provider", s.deps.Source.Name()).Dur("every", s.deps.PollInterval).Msg("news poller started")

	ticker := time.NewTicker(s.deps.PollInterval)
	defer ticker.Stop()
	for {
		res, err := s.PollOnce(ctx)
		if err != nil {
			log.Warn().Str("class", domain.Classify(err)).Err(err).Msg("news poll failed")
		} else {
			log.Info().
				Int("fetched", res.Fetched).
				Int("inserted", res.Inserted).
				Int("duplicate", res.Duplicate).
				Int("skipped", res.Skipped).
				Int("failed", res.Failed).
				Msg("news poll done")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce fetches one page of headlines and stores each one.
func (s *Service) PollOnce(ctx context.Context) (PollResult, error) {
	var res PollResult
	records, err := s.deps.Source.FetchHeadlines(ctx)
	if err != nil {
		return res, err
	}
	res.Fetched = len(records)

	for _, rec := range records {
		h, err := service.NormalizeHeadline(rec, s.deps.Now())
		if err != nil {
			res.Skipped++
			continue
		}
		h.Symbols = s.deps.Extractor.Extract(h.Title)
		if s.deps.Scorer != nil {
			score, err := s.deps.Scorer.Score(ctx, h.Title)
			if err != nil {
				log.Warn().Err(err).Str("headline", truncate(h.Title, 30)).Msg("sentiment scoring failed")
			} else {
				rounded := math.Round(score*1e4) / 1e4
				h.Sentiment = &rounded
			}
		}

		wctx, cancel := context.WithTimeout(ctx, s.deps.WriteTimeout)
		inserted, err := s.deps.Sink.InsertHeadline(wctx, h)
		cancel()
		switch {
		case err != nil:
			res.Failed++
			log.Error().Err(err).Str("headline", truncate(h.Title, 30)).Msg("headline insert failed")
		case inserted:
			res.Inserted++
			log.Debug().Str("headline", truncate(h.Title, 30)).Msg("headline inserted")
		default:
			res.Duplicate++
		}
	}
	return res, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
