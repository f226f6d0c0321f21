package service

import (
	"regexp"

	"mdingest/internal/domain/model"
)

var tickerPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// RegexTickerExtractor picks 2-5 letter uppercase words out of a headline.
// It returns nil when nothing matches.
type RegexTickerExtractor struct{}

func (RegexTickerExtractor) Extract(text string) []model.Symbol {
	matches := tickerPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]model.Symbol, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, model.Symbol(m))
	}
	return out
}
