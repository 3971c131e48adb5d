package application

import (
	"context"
	"sync"
	"time"

	"xrp-monitor/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceAggregator is what PriceCache refreshes from.
type PriceAggregator interface {
	Aggregate(ctx context.Context) (decimal.Decimal, error)
}

// PriceCache serves the last aggregated price of one channel while it is
// younger than ttl and refreshes it otherwise. An expired value is never
// served: a failed refresh yields ErrAggregationFailed.
type PriceCache struct {
	channel    domain.Channel
	ttl        time.Duration
	backend    CacheBackend
	aggregator PriceAggregator
	log        *zap.Logger
	metrics    Metrics
}

func NewPriceCache(ch domain.Channel, ttl time.Duration, backend CacheBackend, agg PriceAggregator, log *zap.Logger, m Metrics) *PriceCache {
	if backend == nil {
		backend = NewMemoryCache()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = NopMetrics{}
	}
	return &PriceCache{
		channel:    ch,
		ttl:        ttl,
		backend:    backend,
		aggregator: agg,
		log:        log.With(zap.String("channel", ch.String())),
		metrics:    m,
	}
}

func (c *PriceCache) TTL() time.Duration { return c.ttl }

// GetOrRefresh returns the cached price if now-cachedAt < ttl, otherwise
// aggregates, stores {price, now} and returns the new price.
func (c *PriceCache) GetOrRefresh(ctx context.Context, now time.Time) (decimal.Decimal, error) {
	cached, ok, err := c.backend.Load(ctx, c.channel)
	if err != nil {
		c.log.Warn("cache.load_failed", zap.Error(err))
		ok = false
	}
	if ok {
		cached.TTL = c.ttl
		if cached.FreshAt(now) {
			c.metrics.CacheLookup(c.channel, true)
			return cached.Price, nil
		}
	}
	c.metrics.CacheLookup(c.channel, false)

	price, err := c.aggregator.Aggregate(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	entry := domain.CachedQuote{Price: price, CachedAt: now, TTL: c.ttl}
	if err := c.backend.Store(ctx, c.channel, entry); err != nil {
		c.log.Warn("cache.store_failed", zap.Error(err))
	}
	return price, nil
}

// MemoryCache is the in-process CacheBackend.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[domain.Channel]domain.CachedQuote
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[domain.Channel]domain.CachedQuote{}}
}

func (m *MemoryCache) Load(_ context.Context, ch domain.Channel) (domain.CachedQuote, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.entries[ch]
	return q, ok, nil
}

func (m *MemoryCache) Store(_ context.Context, ch domain.Channel, q domain.CachedQuote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[ch] = q
	return nil
}
