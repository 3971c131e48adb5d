package application

import (
	"context"
	"time"

	"xrp-monitor/internal/domain"
)

// Source wraps one remote price API. Implementations perform a single
// request per call and never retry.
type Source interface {
	Name() string
	Fetch(ctx context.Context, ch domain.Channel) (domain.Quote, error)
}

// CacheBackend persists the last aggregated quote of a channel. The
// freshness decision stays with PriceCache.
type CacheBackend interface {
	Load(ctx context.Context, ch domain.Channel) (domain.CachedQuote, bool, error)
	Store(ctx context.Context, ch domain.Channel, q domain.CachedQuote) error
}

// HistoryStore is the bounded, timestamp-ordered record of one channel.
type HistoryStore interface {
	// AppendIfChanged appends rec unless its price equals the most recent
	// stored price, enforces the retention bound and returns the resulting
	// window (oldest first). On a failed write the window is still returned
	// alongside an error wrapping domain.ErrHistoryWriteFailed.
	AppendIfChanged(ctx context.Context, rec domain.HistoryRecord) ([]domain.HistoryRecord, error)
	ReadAll(ctx context.Context) ([]domain.HistoryRecord, error)
	Compact(ctx context.Context) error
}

// ChannelLocker serializes refresh-and-append per channel.
type ChannelLocker interface {
	Lock(ctx context.Context, ch domain.Channel) (unlock func(), err error)
}

// Metrics receives outcome counters. A nil error in SourceFetched means the
// source succeeded.
type Metrics interface {
	SourceFetched(ch domain.Channel, source string, err error, took time.Duration)
	CacheLookup(ch domain.Channel, hit bool)
	QuoteServed(ch domain.Channel, ok bool)
	HistoryWriteFailed(ch domain.Channel)
}

type NopMetrics struct{}

func (NopMetrics) SourceFetched(domain.Channel, string, error, time.Duration) {}
func (NopMetrics) CacheLookup(domain.Channel, bool)                          {}
func (NopMetrics) QuoteServed(domain.Channel, bool)                          {}
func (NopMetrics) HistoryWriteFailed(domain.Channel)                         {}
