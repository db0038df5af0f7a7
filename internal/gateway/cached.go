package gateway

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MetricsRecorder receives cache hit/miss events.
type MetricsRecorder interface {
	RecordCacheHit(ctx context.Context, cacheType string)
	RecordCacheMiss(ctx context.Context, cacheType string)
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

type ttlCache[V any] struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]cacheEntry[V]
	now func() time.Time
}

func newTTLCache[V any](ttl time.Duration, now func() time.Time) *ttlCache[V] {
	return &ttlCache[V]{ttl: ttl, m: make(map[string]cacheEntry[V]), now: now}
}

func (c *ttlCache[V]) get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.m[key]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

func (c *ttlCache[V]) set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// sweep expired entries on write so the map stays bounded by live cities
	now := c.now()
	for k, e := range c.m {
		if now.After(e.expiresAt) {
			delete(c.m, k)
		}
	}
	c.m[key] = cacheEntry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

func (c *ttlCache[V]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Cached wraps a WeatherGateway and remembers successful responses for a TTL.
// Failures are never cached.
type Cached struct {
	next     WeatherGateway
	current  *ttlCache[CurrentConditions]
	forecast *ttlCache[[]ForecastDay]
	ttl      time.Duration
	metrics  MetricsRecorder
	logger   *zap.Logger
}

var _ WeatherGateway = (*Cached)(nil)

func NewCached(next WeatherGateway, ttl time.Duration, logger *zap.Logger) *Cached {
	return newCached(next, ttl, logger, time.Now)
}

func newCached(next WeatherGateway, ttl time.Duration, logger *zap.Logger, now func() time.Time) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{
		next:     next,
		current:  newTTLCache[CurrentConditions](ttl, now),
		forecast: newTTLCache[[]ForecastDay](ttl, now),
		ttl:      ttl,
		logger:   logger,
	}
}

func (c *Cached) SetMetricsRecorder(metrics MetricsRecorder) {
	c.metrics = metrics
}

func (c *Cached) FetchCurrent(ctx context.Context, city string) (CurrentConditions, error) {
	key := cacheKey(city)
	if value, ok := c.current.get(key); ok {
		c.hit(ctx, "current", key)
		return value, nil
	}
	c.miss(ctx, "current", key)

	value, err := c.next.FetchCurrent(ctx, city)
	if err != nil {
		return CurrentConditions{}, err
	}
	c.current.set(key, value)
	return value, nil
}

func (c *Cached) FetchForecast(ctx context.Context, city string) ([]ForecastDay, error) {
	key := cacheKey(city)
	if value, ok := c.forecast.get(key); ok {
		c.hit(ctx, "forecast", key)
		return append([]ForecastDay(nil), value...), nil
	}
	c.miss(ctx, "forecast", key)

	value, err := c.next.FetchForecast(ctx, city)
	if err != nil {
		return nil, err
	}
	c.forecast.set(key, append([]ForecastDay(nil), value...))
	return value, nil
}

func (c *Cached) Stats() map[string]interface{} {
	return map[string]interface{}{
		"current_entries":  c.current.size(),
		"forecast_entries": c.forecast.size(),
		"cache_ttl":        c.ttl.String(),
	}
}

func (c *Cached) hit(ctx context.Context, cacheType, key string) {
	c.logger.Debug("Cache hit", zap.String("cache", cacheType), zap.String("cache_key", key))
	if c.metrics != nil {
		c.metrics.RecordCacheHit(ctx, cacheType)
	}
}

func (c *Cached) miss(ctx context.Context, cacheType, key string) {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(ctx, cacheType)
	}
}

// cacheKey folds case and whitespace so "new york" and "NEW  YORK" share an entry.
func cacheKey(city string) string {
	return strings.Join(strings.Fields(strings.ToLower(city)), " ")
}
