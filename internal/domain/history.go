package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultHistoryLimit = 500

type HistoryRecord struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// NormalizeHistory orders records by timestamp ascending (stable, so equal
// timestamps keep insertion order) and keeps only the most recent limit.
// The input slice is not modified.
func NormalizeHistory(records []HistoryRecord, limit int) []HistoryRecord {
	out := make([]HistoryRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// PercentChange compares price against the second most recent record of a
// normalized window. It is zero when fewer than two records exist or the
// previous price is zero.
func PercentChange(window []HistoryRecord, price decimal.Decimal) decimal.Decimal {
	if len(window) < 2 {
		return decimal.Zero
	}
	prev := window[len(window)-2].Price
	if prev.IsZero() {
		return decimal.Zero
	}
	return price.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100))
}

// Last returns the most recent record of a normalized window.
func Last(window []HistoryRecord) (HistoryRecord, bool) {
	if len(window) == 0 {
		return HistoryRecord{}, false
	}
	return window[len(window)-1], true
}
