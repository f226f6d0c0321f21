package alpaca

import (
	"mdingest/internal/application/port"
	"mdingest/internal/infrastructure/provider"
)

// init() registers the Alpaca factories so cmd/* only needs a blank import.
func init() {
	provider.RegisterBarSource(Name, func(s provider.Settings) (port.BarSource, error) {
		return NewBarSource(s.APIKey, s.APISecret, s.BaseURL, s.Feed, s.Timeout), nil
	})
	provider.RegisterQuoteStream(Name, func(s provider.Settings) (port.QuoteStream, error) {
		return NewQuoteStream(s.APIKey, s.APISecret, s.Feed, s.StreamURL), nil
	})
}
