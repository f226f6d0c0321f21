package finnhub

import (
	"mdingest/internal/application/port"
	"mdingest/internal/infrastructure/provider"
)

func init() {
	provider.RegisterBarSource(Name, func(s provider.Settings) (port.BarSource, error) {
		return NewBarSource(s.APIKey, s.BaseURL, s.Timeout), nil
	})
	provider.RegisterQuoteStream(Name, func(s provider.Settings) (port.QuoteStream, error) {
		return NewTradeFeed(s.APIKey, s.StreamURL), nil
	})
}
