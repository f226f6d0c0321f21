package newsdata

import (
	"mdingest/internal/application/port"
	"mdingest/internal/infrastructure/provider"
)

func init() {
	provider.RegisterHeadlineSource(Name, func(s provider.Settings) (port.HeadlineSource, error) {
		return NewHeadlineSource(s.APIKey, s.BaseURL, s.Language, s.Timeout), nil
	})
}
