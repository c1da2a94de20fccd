// Package feed streams closed candles from a websocket source into the
// live scanner. The wire format is one JSON candle per message; forming
// candles are flagged and skipped, matching how exchange kline streams
// behave.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"trendlab/internal/model"
)

const (
	readTimeout      = 90 * time.Second
	reconnectBackoff = 5 * time.Second
	maxReconnects    = 10
)

// Config holds the feed connection parameters.
type Config struct {
	URL    string // websocket endpoint, e.g. "wss://host/stream?symbol=BTCUSDT"
	Symbol string
}

// Feed is a reconnecting websocket candle client.
type Feed struct {
	cfg Config

	// OnReconnect is an optional metrics hook invoked per reconnect attempt.
	OnReconnect func()
}

// New creates a feed client. Connection happens in Run.
func New(cfg Config) *Feed {
	return &Feed{cfg: cfg}
}

// wireCandle is the JSON shape of one feed message.
type wireCandle struct {
	Symbol  string  `json:"symbol"`
	TS      int64   `json:"ts"`
	Open    float64 `json:"open"`
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Close   float64 `json:"close"`
	Volume  float64 `json:"volume"`
	Forming bool    `json:"forming"` // true while the bar is still open
}

// Run connects and pushes closed candles into candleCh until ctx is
// cancelled. It reconnects with backoff on read errors and gives up after
// maxReconnects consecutive failures.
func (f *Feed) Run(ctx context.Context, candleCh chan<- model.Candle) error {
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := f.stream(ctx, candleCh)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		failures++
		if failures > maxReconnects {
			return fmt.Errorf("feed: giving up after %d reconnect attempts: %w", maxReconnects, err)
		}
		if f.OnReconnect != nil {
			f.OnReconnect()
		}
		log.Printf("[feed] stream error (attempt %d/%d): %v — reconnecting in %s",
			failures, maxReconnects, err, reconnectBackoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectBackoff):
		}
	}
}

// stream runs one websocket session until an error or cancellation.
func (f *Feed) stream(ctx context.Context, candleCh chan<- model.Candle) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.cfg.URL, err)
	}
	defer conn.Close()
	log.Printf("[feed] connected to %s (symbol=%s)", f.cfg.URL, f.cfg.Symbol)

	// Unblock ReadMessage on cancellation.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var wc wireCandle
		if err := json.Unmarshal(payload, &wc); err != nil {
			log.Printf("[feed] skipping malformed message: %v", err)
			continue
		}
		if wc.Forming {
			continue // only closed bars enter the pipeline
		}
		if wc.Symbol != "" && wc.Symbol != f.cfg.Symbol {
			continue
		}

		candle := model.Candle{
			Symbol: f.cfg.Symbol,
			TS:     wc.TS,
			Open:   wc.Open,
			High:   wc.High,
			Low:    wc.Low,
			Close:  wc.Close,
			Volume: wc.Volume,
		}
		select {
		case candleCh <- candle:
		default:
			log.Println("[feed] candleCh full, dropping candle")
		}
	}
}
