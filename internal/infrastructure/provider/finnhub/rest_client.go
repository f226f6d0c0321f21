package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mdingest/internal/application/port"
	"mdingest/internal/domain"
	"mdingest/internal/domain/model"
)

const (
	Name           = "finnhub"
	defaultBaseURL = "https://finnhub.io/api/v1"
)

// candleResp is Finnhub's /stock/candle payload: parallel arrays, s="ok" or "no_data".
type candleResp struct {
	Status string    `json:"s"`
	T      []int64   `json:"t"`
	O      []float64 `json:"o"`
	H      []float64 `json:"h"`
	L      []float64 `json:"l"`
	C      []float64 `json:"c"`
	V      []float64 `json:"v"`
}

// BarSource fetches daily candles from the Finnhub REST API.
type BarSource struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewBarSource(token, baseURL string, timeout time.Duration) *BarSource {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &BarSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *BarSource) Name() string { return Name }

func (s *BarSource) FetchBars(ctx context.Context, symbol model.Symbol, interval string, r model.DateRange) ([]port.RawRecord, error) {
	if interval != "" && interval != "1Day" {
		return nil, domain.ConfigErrorf("finnhub: unsupported interval %q", interval)
	}
	params := url.Values{}
	params.Set("symbol", string(symbol))
	params.Set("resolution", "D")
	params.Set("from", strconv.FormatInt(r.Start.Unix(), 10))
	// end of the last day, inclusive
	params.Set("to", strconv.FormatInt(r.End.AddDate(0, 0, 1).Unix()-1, 10))
	params.Set("token", s.token)
	endpoint := fmt.Sprintf("%s/stock/candle?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.FetchError(Name, "build request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.FetchError(Name, "get candles", stripToken(err, s.token))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.FetchError(Name, "get candles", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var cr candleResp
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, domain.FetchError(Name, "decode candles", err)
	}
	return transformCandles(cr)
}

func transformCandles(cr candleResp) ([]port.RawRecord, error) {
	if cr.Status == "no_data" {
		return nil, nil
	}
	if cr.Status != "ok" {
		return nil, domain.FetchError(Name, "get candles", fmt.Errorf("status %q", cr.Status))
	}
	n := len(cr.T)
	// missing columns surface as malformed records downstream
	out := make([]port.RawRecord, n)
	for i := 0; i < n; i++ {
		rec := port.RawRecord{"t": cr.T[i]}
		setAt(rec, "o", cr.O, i)
		setAt(rec, "h", cr.H, i)
		setAt(rec, "l", cr.L, i)
		setAt(rec, "c", cr.C, i)
		setAt(rec, "v", cr.V, i)
		out[i] = rec
	}
	return out, nil
}

func setAt(rec port.RawRecord, key string, col []float64, i int) {
	if i < len(col) {
		rec[key] = col[i]
	}
}

// stripToken keeps the API token out of logged URLs.
func stripToken(err error, token string) error {
	if token == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "***"))
}

var _ port.BarSource = (*BarSource)(nil)
