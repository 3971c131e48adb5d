package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a single successful observation from one source. It is consumed
// by the aggregator and not retained.
type Quote struct {
	Channel    Channel
	Price      decimal.Decimal
	ObservedAt time.Time
	Source     string
}

// CachedQuote is the last aggregated price of a channel.
type CachedQuote struct {
	Price    decimal.Decimal
	CachedAt time.Time
	TTL      time.Duration
}

// FreshAt reports whether the entry may still be served at now.
func (c CachedQuote) FreshAt(now time.Time) bool {
	return c.TTL > 0 && now.Sub(c.CachedAt) < c.TTL
}

type Alert string

const (
	AlertNone Alert = ""
	AlertUp   Alert = "up"
	AlertDown Alert = "down"
)

// Snapshot is what consumers get back for a channel: the current price and
// its change against the previous recorded price.
type Snapshot struct {
	Channel       Channel
	Price         decimal.Decimal
	PercentChange decimal.Decimal
	ObservedAt    time.Time
	Alert         Alert
}
