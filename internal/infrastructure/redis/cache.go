package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CacheStore shares the last aggregated quote per channel between
// processes. Keys expire with the entry's TTL; freshness is still decided
// by the caller against its own clock.
type CacheStore struct {
	Client *redis.Client
}

var _ application.CacheBackend = (*CacheStore)(nil)

func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{Client: client}
}

type cachedEntry struct {
	Price    decimal.Decimal `json:"price"`
	CachedAt time.Time       `json:"cached_at"`
}

func (s *CacheStore) Load(ctx context.Context, ch domain.Channel) (domain.CachedQuote, bool, error) {
	raw, err := s.Client.Get(ctx, quoteKey(ch)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CachedQuote{}, false, nil
	}
	if err != nil {
		return domain.CachedQuote{}, false, err
	}
	var e cachedEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return domain.CachedQuote{}, false, fmt.Errorf("decode cached quote: %w", err)
	}
	return domain.CachedQuote{Price: e.Price, CachedAt: e.CachedAt.UTC()}, true, nil
}

func (s *CacheStore) Store(ctx context.Context, ch domain.Channel, q domain.CachedQuote) error {
	raw, err := json.Marshal(cachedEntry{Price: q.Price, CachedAt: q.CachedAt.UTC()})
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, quoteKey(ch), raw, q.TTL).Err()
}
