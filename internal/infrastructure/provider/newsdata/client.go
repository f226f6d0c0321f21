package newsdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mdingest/internal/application/port"
	"mdingest/internal/domain"
)

const (
	Name           = "newsdata"
	defaultBaseURL = "https://newsdata.io/api/1"
)

type newsResp struct {
	Status  string            `json:"status"`
	Results []json.RawMessage `json:"results"`
}

// HeadlineSource polls the newsdata.io latest-news endpoint.
type HeadlineSource struct {
	baseURL  string
	apiKey   string
	language string
	client   *http.Client
}

func NewHeadlineSource(apiKey, baseURL, language string, timeout time.Duration) *HeadlineSource {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if language == "" {
		language = "en"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HeadlineSource{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		language: language,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *HeadlineSource) Name() string { return Name }

// FetchHeadlines returns the object items of results[]; anything else is skipped.
func (s *HeadlineSource) FetchHeadlines(ctx context.Context) ([]port.RawRecord, error) {
	params := url.Values{}
	params.Set("apikey", s.apiKey)
	params.Set("language", s.language)
	endpoint := fmt.Sprintf("%s/news?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.FetchError(Name, "build request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.FetchError(Name, "get news", redact(err, s.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.FetchError(Name, "get news", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var nr newsResp
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		return nil, domain.FetchError(Name, "decode news", err)
	}

	out := make([]port.RawRecord, 0, len(nr.Results))
	for _, raw := range nr.Results {
		var rec map[string]any
		if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
			continue
		}
		out = append(out, port.RawRecord(rec))
	}
	return out, nil
}

// redact keeps the API key out of logged URLs.
func redact(err error, key string) error {
	if key == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), key, "***"))
}

var _ port.HeadlineSource = (*HeadlineSource)(nil)
