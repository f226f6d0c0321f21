package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"mdingest/internal/application/port"
	"mdingest/internal/domain"
	"mdingest/internal/domain/model"
)

// Repo publishes newly stored quotes for downstream feature jobs.
type Repo struct {
	rdb         *redis.Client
	prefix      string
	ttl         time.Duration
	keyLatest   string // prefix + ":latest"
	quoteStream string
	quoteChan   string
}

// LatestQuote is the JSON payload written to the hash and the channel.
type LatestQuote struct {
	Symbol string   `json:"symbol"`
	TsMs   int64    `json:"ts_ms"`
	Bid    *float64 `json:"bid,omitempty"`
	Ask    *float64 `json:"ask,omitempty"`
	Last   *float64 `json:"last,omitempty"`
	Size   *float64 `json:"size,omitempty"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, quoteStream, quoteChan string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "mdingest"
	}
	if strings.TrimSpace(quoteStream) == "" {
		quoteStream = prefix + ":ticks"
	}
	if strings.TrimSpace(quoteChan) == "" {
		quoteChan = prefix + ":ticks:pub"
	}
	return &Repo{
		rdb:         rdb,
		prefix:      prefix,
		ttl:         ttl,
		keyLatest:   prefix + ":latest",
		quoteStream: quoteStream,
		quoteChan:   quoteChan,
	}
}

// Dial connects and pings.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, domain.StorageError("redis ping", err)
	}
	return rdb, nil
}

func (r *Repo) PublishQuote(ctx context.Context, q model.Quote) error {
	lq := LatestQuote{
		Symbol: string(q.Symbol),
		TsMs:   q.Timestamp.UnixMilli(),
		Bid:    q.Bid,
		Ask:    q.Ask,
		Last:   q.Last,
		Size:   q.Size,
	}
	b, err := json.Marshal(lq)
	if err != nil {
		return err
	}

	// Hash: field = "AAPL" -> json
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, lq.Symbol, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	// Stream: XADD <stream> * symbol ts_ms payload
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: r.quoteStream,
		Values: map[string]any{
			"symbol":  lq.Symbol,
			"ts_ms":   lq.TsMs,
			"payload": string(b),
		},
	})
	// PubSub: PUBLISH <channel> json
	pipe.Publish(ctx, r.quoteChan, string(b))
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.StorageError("redis publish", err)
	}
	return nil
}

func (r *Repo) Close() error { return r.rdb.Close() }

var _ port.QuotePublisher = (*Repo)(nil)
