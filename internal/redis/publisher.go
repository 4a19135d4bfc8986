// Package redis publishes committed cycle results to Redis for downstream
// consumers: the latest snapshot under a well-known key plus a Pub/Sub fanout
// for live listeners.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/memepulse/internal/domain"
	"github.com/pscheid92/memepulse/internal/metrics"
)

const (
	snapshotKey     = "memepulse:snapshot"
	cycleChannel    = "memepulse:cycles"
	snapshotExpiry  = 24 * time.Hour
	publishDeadline = 5 * time.Second
)

// Client wraps a go-redis client.
type Client struct {
	rdb *goredis.Client
}

// NewClient creates a client from a URL (e.g. "redis://localhost:6379").
func NewClient(redisURL string) (*Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &Client{rdb: goredis.NewClient(opts)}, nil
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Publisher implements domain.SnapshotPublisher on Redis. Publishes run
// through a circuit breaker so a dead Redis cannot stall the poll loop: when
// the breaker is open, publishes fail fast and the cycle commits regardless.
type Publisher struct {
	rdb *goredis.Client
	cb  circuitbreaker.CircuitBreaker[any]
}

var _ domain.SnapshotPublisher = (*Publisher)(nil)

// NewPublisher creates a publisher over the given client.
func NewPublisher(client *Client) *Publisher {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(60, 5, 10*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Publisher circuit breaker state changed",
				"from", e.OldState.String(), "to", e.NewState.String())
			metrics.BreakerStateChanges.WithLabelValues(e.NewState.String()).Inc()
		}).
		Build()
	return &Publisher{rdb: client.rdb, cb: cb}
}

// PublishCycle stores the cycle result under the snapshot key and fans it out
// on the cycle channel.
func (p *Publisher) PublishCycle(ctx context.Context, result domain.CycleResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cycle result: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishDeadline)
	defer cancel()

	err = failsafe.Run(func() error {
		if err := p.rdb.Set(ctx, snapshotKey, data, snapshotExpiry).Err(); err != nil {
			return fmt.Errorf("failed to store snapshot: %w", err)
		}
		if err := p.rdb.Publish(ctx, cycleChannel, data).Err(); err != nil {
			return fmt.Errorf("failed to publish cycle: %w", err)
		}
		return nil
	}, p.cb)
	if err != nil {
		metrics.PublishFailuresTotal.Inc()
		return err
	}
	return nil
}
