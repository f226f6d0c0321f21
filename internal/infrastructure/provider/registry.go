package provider

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"mdingest/internal/application/port"
	"mdingest/internal/domain"
)

// Settings carries credentials and endpoint overrides to a provider factory.
// Empty URLs mean the provider's production endpoint.
type Settings struct {
	APIKey    string
	APISecret string
	BaseURL   string
	StreamURL string
	Feed      string
	Language  string
	Timeout   time.Duration
}

// HTTPClient builds a client with the configured timeout.
func (s Settings) HTTPClient() *http.Client {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

type (
	BarSourceFactory      func(Settings) (port.BarSource, error)
	QuoteStreamFactory    func(Settings) (port.QuoteStream, error)
	HeadlineSourceFactory func(Settings) (port.HeadlineSource, error)
)

var (
	mu        sync.RWMutex
	bars      = make(map[string]BarSourceFactory)
	quotes    = make(map[string]QuoteStreamFactory)
	headlines = make(map[string]HeadlineSourceFactory)
)

// RegisterBarSource is called from provider packages' init().
func RegisterBarSource(name string, f BarSourceFactory) {
	register(bars, name, f, "bar source")
}

func RegisterQuoteStream(name string, f QuoteStreamFactory) {
	register(quotes, name, f, "quote stream")
}

func RegisterHeadlineSource(name string, f HeadlineSourceFactory) {
	register(headlines, name, f, "headline source")
}

func register[F any](m map[string]F, name string, f F, kind string) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := m[name]; exists {
		log.Warn().Str("provider", name).Str("kind", kind).Msg("factory already registered, overwriting")
	}
	m[name] = f
	log.Debug().Str("provider", name).Str("kind", kind).Msg("factory registered")
}

func lookup[F any](m map[string]F, name, kind string) (F, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := m[name]
	if !ok {
		var zero F
		return zero, domain.ConfigErrorf("no %s registered for provider %q (have %v)", kind, name, names(m))
	}
	return f, nil
}

func names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewBarSource builds the named bar source.
func NewBarSource(name string, s Settings) (port.BarSource, error) {
	f, err := lookup(bars, name, "bar source")
	if err != nil {
		return nil, err
	}
	return f(s)
}

func NewQuoteStream(name string, s Settings) (port.QuoteStream, error) {
	f, err := lookup(quotes, name, "quote stream")
	if err != nil {
		return nil, err
	}
	return f(s)
}

func NewHeadlineSource(name string, s Settings) (port.HeadlineSource, error) {
	f, err := lookup(headlines, name, "headline source")
	if err != nil {
		return nil, err
	}
	return f(s)
}
