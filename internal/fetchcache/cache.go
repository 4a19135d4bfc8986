// Package fetchcache shields upstream sources from abuse. Every upstream call
// goes through a TTL cache with request collapsing, a per-source rate limiter,
// and a per-source exponential cool-down that serves stale data while an
// upstream is struggling.
package fetchcache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/pscheid92/memepulse/internal/domain"
	apperrors "github.com/pscheid92/memepulse/internal/errors"
	"github.com/pscheid92/memepulse/internal/metrics"
	"github.com/pscheid92/memepulse/internal/retry"
)

const (
	baseCooldown = 30 * time.Second
	maxCooldown  = 30 * time.Minute
)

// Options tune a Cache. The zero value gets sensible defaults from New.
type Options struct {
	// SourceRate caps upstream calls per source. Zero means 1 req/sec.
	SourceRate rate.Limit
	// SourceBurst is the limiter burst per source. Zero means 2.
	SourceBurst int
	// Retry controls the in-call retry policy for transient errors.
	Retry retry.Policy
}

type entry struct {
	value     any
	fetchedAt time.Time
}

type sourceState struct {
	limiter       *rate.Limiter
	failures      int
	cooldownUntil time.Time
	suspended     bool
}

// Cache is the fetch cache / rate limiter. It is safe for concurrent use;
// fetches for the same key collapse into a single in-flight call.
type Cache struct {
	clock clockwork.Clock
	opts  Options
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry
	sources map[string]*sourceState
}

// New creates a cache with the injected clock.
func New(clock clockwork.Clock, opts Options) *Cache {
	if opts.SourceRate == 0 {
		opts.SourceRate = rate.Limit(1)
	}
	if opts.SourceBurst == 0 {
		opts.SourceBurst = 2
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.Policy{
			MaxAttempts:      2,
			InitialBackoff:   200 * time.Millisecond,
			RateLimitBackoff: 2 * time.Second,
		}
	}
	if opts.Retry.Clock == nil {
		opts.Retry.Clock = clock
	}
	return &Cache{
		clock:   clock,
		opts:    opts,
		entries: make(map[string]entry),
		sources: make(map[string]*sourceState),
	}
}

// Get returns the cached value for source+key if fresher than ttl; otherwise
// it performs exactly one fetch (concurrent callers for the same key await the
// in-flight call). On failure the last cached value is served if present,
// stale but available.
func Get[T any](ctx context.Context, c *Cache, source, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	full := source + ":" + key

	v, err, _ := c.group.Do(full, func() (any, error) {
		return c.lookup(ctx, source, full, ttl, func(ctx context.Context) (any, error) {
			return fetch(ctx)
		})
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *Cache) lookup(ctx context.Context, source, full string, ttl time.Duration, fetch func(ctx context.Context) (any, error)) (any, error) {
	now := c.clock.Now()

	c.mu.Lock()
	cached, hasCached := c.entries[full]
	if hasCached && now.Sub(cached.fetchedAt) < ttl {
		c.mu.Unlock()
		metrics.FetchesTotal.WithLabelValues(source, "hit").Inc()
		return cached.value, nil
	}
	st := c.sourceLocked(source)
	if st.suspended {
		c.mu.Unlock()
		metrics.FetchesTotal.WithLabelValues(source, "suspended").Inc()
		if hasCached {
			return cached.value, nil
		}
		return nil, apperrors.UpstreamAuthError(source, domain.ErrSourceSuspended)
	}
	if now.Before(st.cooldownUntil) {
		c.mu.Unlock()
		metrics.FetchesTotal.WithLabelValues(source, "stale").Inc()
		if hasCached {
			return cached.value, nil
		}
		return nil, apperrors.RateLimitedError(source, domain.ErrSourceCoolingDown)
	}
	limiter := st.limiter
	c.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		if hasCached {
			metrics.FetchesTotal.WithLabelValues(source, "stale").Inc()
			return cached.value, nil
		}
		return nil, apperrors.TimeoutError(source, err)
	}

	start := c.clock.Now()
	value, err := retry.Do(ctx, c.opts.Retry, classifyFetch, func() (any, error) {
		return fetch(ctx)
	})
	metrics.FetchDuration.WithLabelValues(source).Observe(c.clock.Since(start).Seconds())

	if err != nil {
		c.recordFailure(source, err)
		metrics.FetchesTotal.WithLabelValues(source, "error").Inc()
		if hasCached {
			slog.WarnContext(ctx, "Fetch failed, serving stale value",
				"source", source, "key", full, "error", err)
			return cached.value, nil
		}
		return nil, err
	}

	c.recordSuccess(source, full, value)
	metrics.FetchesTotal.WithLabelValues(source, "miss").Inc()
	return value, nil
}

func classifyFetch(err error) retry.Action {
	switch apperrors.TypeOf(err) {
	case apperrors.TypeUpstreamAuth:
		return retry.Stop
	case apperrors.TypeRateLimited:
		return retry.After
	default:
		return retry.Retry
	}
}

func (c *Cache) recordSuccess(source, full string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[full] = entry{value: value, fetchedAt: c.clock.Now()}

	st := c.sourceLocked(source)
	st.failures = 0
	st.cooldownUntil = time.Time{}
	metrics.SourceCooldownSeconds.WithLabelValues(source).Set(0)
}

func (c *Cache) recordFailure(source string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.sourceLocked(source)

	var perm *retry.PermanentError
	if apperrors.TypeOf(err) == apperrors.TypeUpstreamAuth || (errors.As(err, &perm) && apperrors.TypeOf(perm.Err) == apperrors.TypeUpstreamAuth) {
		st.suspended = true
		slog.Error("Source suspended after auth failure", "source", source, "error", err)
		return
	}

	st.failures++
	cooldown := baseCooldown << (st.failures - 1)
	if cooldown > maxCooldown || cooldown <= 0 {
		cooldown = maxCooldown
	}
	st.cooldownUntil = c.clock.Now().Add(cooldown)
	metrics.SourceCooldownSeconds.WithLabelValues(source).Set(cooldown.Seconds())
	slog.Warn("Source fetch failed, backing off",
		"source", source, "failures", st.failures, "cooldown", cooldown, "error", err)
}

// sourceLocked returns the state for a source, creating it on first use.
// Callers must hold c.mu.
func (c *Cache) sourceLocked(source string) *sourceState {
	st, ok := c.sources[source]
	if !ok {
		st = &sourceState{limiter: rate.NewLimiter(c.opts.SourceRate, c.opts.SourceBurst)}
		c.sources[source] = st
	}
	return st
}

// Invalidate clears entries matching key. "*" clears everything; a value
// ending in "*" clears by prefix; anything else clears the exact key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key == "*" {
		c.entries = make(map[string]entry)
		return
	}
	if prefix, ok := strings.CutSuffix(key, "*"); ok {
		for k := range c.entries {
			if strings.HasPrefix(k, prefix) {
				delete(c.entries, k)
			}
		}
		return
	}
	delete(c.entries, key)
}

// InvalidateAll clears every entry and resets all failure state, including
// auth suspensions. Used by the force-update operation after reconfiguration.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	for source, st := range c.sources {
		st.failures = 0
		st.cooldownUntil = time.Time{}
		st.suspended = false
		metrics.SourceCooldownSeconds.WithLabelValues(source).Set(0)
	}
}

// Suspended reports whether a source is currently suspended after an auth
// failure.
func (c *Cache) Suspended(source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.sources[source]
	return ok && st.suspended
}
