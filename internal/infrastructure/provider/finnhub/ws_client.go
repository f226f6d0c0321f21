package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"mdingest/internal/application/port"
	"mdingest/internal/domain"
)

const defaultWsURL = "wss://ws.finnhub.io"

type tradeData struct {
	Price     float64 `json:"p"`
	Symbol    string  `json:"s"`
	Timestamp int64   `json:"t"` // unix ms
	Volume    float64 `json:"v"`
}

type tradeMessage struct {
	Type string      `json:"type"`
	Data []tradeData `json:"data"`
}

type subscribeMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// TradeFeed streams last-trade prints over one websocket connection.
// Finnhub's free feed carries trades, not bid/ask, so quotes have only last and size.
type TradeFeed struct {
	wsURL string
	token string

	mu      sync.Mutex
	handler port.QuoteHandler
	symbols []string
}

func NewTradeFeed(token, wsURL string) *TradeFeed {
	if wsURL == "" {
		wsURL = defaultWsURL
	}
	return &TradeFeed{wsURL: strings.TrimSpace(wsURL), token: token}
}

func (f *TradeFeed) Name() string { return Name }

func (f *TradeFeed) SubscribeQuotes(handler port.QuoteHandler, symbols ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	f.symbols = append(f.symbols, symbols...)
}

// Run dials once, subscribes and reads until ctx is done or the connection drops.
func (f *TradeFeed) Run(ctx context.Context) error {
	f.mu.Lock()
	handler, symbols := f.handler, append([]string(nil), f.symbols...)
	f.mu.Unlock()
	if handler == nil || len(symbols) == 0 {
		return domain.ConfigErrorf("finnhub: no quote subscription registered")
	}

	u, err := url.Parse(f.wsURL)
	if err != nil {
		return domain.ConfigErrorf("finnhub ws url: %v", err)
	}
	q := u.Query()
	q.Set("token", f.token)
	u.RawQuery = q.Encode()

	log.Info().Str("feed", Name).Strs("symbols", symbols).Msg("ws connecting")
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(cctx, u.String(), nil)
	cancel()
	if err != nil {
		return domain.FetchError(Name, "dial", stripToken(err, f.token))
	}
	defer conn.Close()

	for _, s := range symbols {
		if err := conn.WriteJSON(subscribeMessage{Type: "subscribe", Symbol: s}); err != nil {
			return domain.FetchError(Name, "subscribe", err)
		}
	}
	log.Info().Str("feed", Name).Msg("ws subscribed")

	err = readLoop(ctx, conn, func(b []byte) {
		var msg tradeMessage
		if e := json.Unmarshal(b, &msg); e != nil {
			log.Warn().Str("feed", Name).Err(e).Msg("json unmarshal failed")
			return
		}
		if msg.Type != "trade" {
			return
		}
		for _, t := range msg.Data {
			handler(port.RawRecord{"s": t.Symbol, "p": t.Price, "t": t.Timestamp, "v": t.Volume})
		}
	})
	if ctx.Err() != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		return nil
	}
	if err == nil {
		err = errors.New("connection closed")
	}
	return domain.FetchError(Name, "stream", fmt.Errorf("ws disconnected: %w", err))
}

func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

var _ port.QuoteStream = (*TradeFeed)(nil)
