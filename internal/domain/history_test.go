package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func rec(min int, price string) HistoryRecord {
	return HistoryRecord{
		Timestamp: time.Date(2025, 1, 1, 12, min, 0, 0, time.UTC),
		Price:     decimal.RequireFromString(price),
	}
}

func TestNormalizeHistory_SortsThenKeepsMostRecent(t *testing.T) {
	in := []HistoryRecord{rec(3, "3"), rec(1, "1"), rec(4, "4"), rec(2, "2")}
	out := NormalizeHistory(in, 3)
	require.Len(t, out, 3)
	require.Equal(t, "2", out[0].Price.String())
	require.Equal(t, "3", out[1].Price.String())
	require.Equal(t, "4", out[2].Price.String())
	// input untouched
	require.Equal(t, "3", in[0].Price.String())
}

func TestNormalizeHistory_StableOnEqualTimestamps(t *testing.T) {
	in := []HistoryRecord{rec(1, "1"), rec(1, "2"), rec(1, "3")}
	out := NormalizeHistory(in, 0)
	require.Equal(t, "1", out[0].Price.String())
	require.Equal(t, "3", out[2].Price.String())
}

func TestPercentChange(t *testing.T) {
	cases := []struct {
		name   string
		window []HistoryRecord
		price  string
		want   string
	}{
		{"empty", nil, "10", "0"},
		{"single", []HistoryRecord{rec(1, "10")}, "10", "0"},
		{"rise", []HistoryRecord{rec(1, "10.0"), rec(2, "10.5")}, "10.5", "5"},
		{"fall", []HistoryRecord{rec(1, "20"), rec(2, "19")}, "19", "-5"},
		{"zero previous", []HistoryRecord{rec(1, "0"), rec(2, "3")}, "3", "0"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := PercentChange(c.window, decimal.RequireFromString(c.price))
			require.True(t, got.Equal(decimal.RequireFromString(c.want)), "got %s", got)
		})
	}
}
