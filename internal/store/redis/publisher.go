// Package redis publishes pipeline output for downstream consumers: emitted
// signals and phase transitions go out on pub/sub channels, and the latest
// value of each is kept under a TTL'd key for late joiners.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trendlab/internal/model"
	"trendlab/internal/phase"
)

const defaultLatestTTL = 30 * time.Minute

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes signals and phase updates to Redis.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a new Publisher and pings the server.
func New(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// PublishSignal sends a signal on "signals:{symbol}" and stores it under
// "latest:signal:{symbol}".
func (p *Publisher) PublishSignal(ctx context.Context, sig model.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("redis marshal signal: %w", err)
	}

	channel := "signals:" + sig.Symbol
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	if err := p.client.Set(ctx, "latest:signal:"+sig.Symbol, payload, defaultLatestTTL).Err(); err != nil {
		return fmt.Errorf("redis set latest signal: %w", err)
	}
	return nil
}

// phaseUpdate is the wire form of a phase transition.
type phaseUpdate struct {
	Symbol string      `json:"symbol"`
	TS     int64       `json:"ts"`
	Label  phase.Label `json:"label"`
}

// PublishPhase sends a phase transition on "phases:{symbol}" and stores the
// latest label.
func (p *Publisher) PublishPhase(ctx context.Context, symbol string, ts int64, label phase.Label) error {
	payload, err := json.Marshal(phaseUpdate{Symbol: symbol, TS: ts, Label: label})
	if err != nil {
		return fmt.Errorf("redis marshal phase: %w", err)
	}

	channel := "phases:" + symbol
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	if err := p.client.Set(ctx, "latest:phase:"+symbol, payload, defaultLatestTTL).Err(); err != nil {
		return fmt.Errorf("redis set latest phase: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error { return p.client.Close() }
