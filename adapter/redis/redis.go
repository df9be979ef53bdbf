// Package redis publishes bench completion events as JSON on a Redis
// pub/sub channel. Failed publishes are retried with backoff.
//
// Pub/sub drops messages nobody is subscribed to, so each publish also
// stores the payload under "<channel>:latest" for late readers.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/crucible/adapter"
)

const (
	DefaultChannel = "crucible:bench_completed"
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 3

	// LatestTTL is how long the latest event stays readable.
	LatestTTL = 24 * time.Hour
)

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is redis://[:password@]host:port[/db].
	URL     string
	Channel string
	// Timeout bounds each publish attempt.
	Timeout time.Duration
	Retries int
}

// Adapter publishes bench completion events via Redis PUBLISH.
type Adapter struct {
	channel string
	timeout time.Duration
	retries int
	rdb     *goredis.Client
}

// New parses the URL and returns an adapter. No connection is made until
// the first publish.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	a := &Adapter{
		channel: cfg.Channel,
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		rdb:     goredis.NewClient(opts),
	}
	if a.channel == "" {
		a.channel = DefaultChannel
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	return a, nil
}

// LatestKey is the key holding the most recent event payload.
func (a *Adapter) LatestKey() string { return a.channel + ":latest" }

// Publish sends the event on the channel and refreshes LatestKey in one
// pipeline.
func (a *Adapter) Publish(ctx context.Context, event *adapter.BenchCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}
	return adapter.Retry(ctx, "redis", a.retries, func(ctx context.Context) error {
		return a.send(ctx, payload)
	}, nil)
}

func (a *Adapter) send(ctx context.Context, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	_, err := a.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		p.Publish(ctx, a.channel, payload)
		p.Set(ctx, a.LatestKey(), payload, LatestTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", a.channel, err)
	}
	return nil
}

// Close closes the connection pool.
func (a *Adapter) Close() error {
	return a.rdb.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
