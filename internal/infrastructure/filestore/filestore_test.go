package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"xrp-monitor/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func rec(offset time.Duration, price string) domain.HistoryRecord {
	return domain.HistoryRecord{Timestamp: t0.Add(offset), Price: decimal.RequireFromString(price)}
}

func newStore(t *testing.T, limit int) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "data.json"), limit, nil)
}

func TestAppendIfChanged_SkipsUnchanged(t *testing.T) {
	s := newStore(t, 500)
	ctx := context.Background()

	w, err := s.AppendIfChanged(ctx, rec(0, "2.5"))
	require.NoError(t, err)
	require.Len(t, w, 1)

	w, err = s.AppendIfChanged(ctx, rec(time.Minute, "2.50"))
	require.NoError(t, err)
	require.Len(t, w, 1)
	require.True(t, w[0].Timestamp.Equal(t0))

	w, err = s.AppendIfChanged(ctx, rec(2*time.Minute, "2.6"))
	require.NoError(t, err)
	require.Len(t, w, 2)

	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range w {
		require.True(t, w[i].Timestamp.Equal(got[i].Timestamp))
		require.True(t, w[i].Price.Equal(got[i].Price))
	}
}

func TestAppendIfChanged_Bounded(t *testing.T) {
	s := newStore(t, 3)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		w, err := s.AppendIfChanged(ctx, rec(time.Duration(i)*time.Minute, decimal.NewFromInt(int64(i+1)).String()))
		require.NoError(t, err)
		require.LessOrEqual(t, len(w), 3)
	}
	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "8", got[0].Price.String())
	require.Equal(t, "10", got[2].Price.String())
}

func TestFileFormat(t *testing.T) {
	s := newStore(t, 500)
	_, err := s.AppendIfChanged(context.Background(), domain.HistoryRecord{
		Timestamp: time.Date(2024, 5, 1, 9, 0, 0, 500, time.FixedZone("BRT", -3*3600)),
		Price:     decimal.RequireFromString("2.91"),
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	want := "[\n  {\n    \"timestamp\": \"2024-05-01T12:00:00.0000005Z\",\n    \"price\": 2.91\n  }\n]\n"
	require.Equal(t, want, string(raw))
}

func TestCompact_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	legacy := `[
 {"timestamp": "2024-05-01T12:03:00", "price": 3},
 {"timestamp": "2024-05-01T12:01:00.123456", "price": "1.0"},
 {"timestamp": "2024-05-01 12:02:00", "price": 2},
 {"timestamp": "2024-05-01T11:00:00Z", "price": 0.5},
 {"timestamp": "yesterday", "price": 9},
 {"timestamp": "2024-05-01T12:04:00Z", "price": null}
]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	s := New(path, 3, nil)
	require.NoError(t, s.Compact(context.Background()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Compact(context.Background()))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))

	got, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "1", got[0].Price.String())
	require.True(t, got[0].Timestamp.Equal(time.Date(2024, 5, 1, 12, 1, 0, 123456000, time.UTC)))
	require.Equal(t, "3", got[2].Price.String())
}

func TestCorruptFile_MovedAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := New(path, 500, nil)
	got, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)

	bad, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	require.Equal(t, "{not json", string(bad))

	w, err := s.AppendIfChanged(context.Background(), rec(0, "1"))
	require.NoError(t, err)
	require.Len(t, w, 1)
}

func TestWriteFailure_ReturnsWindow(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing", "data.json"), 500, nil)
	w, err := s.AppendIfChanged(context.Background(), rec(0, "4.2"))
	require.ErrorIs(t, err, domain.ErrHistoryWriteFailed)
	require.Len(t, w, 1)
	require.Equal(t, "4.2", w[0].Price.String())

	require.ErrorIs(t, s.Compact(context.Background()), domain.ErrHistoryWriteFailed)
}

func TestMissingAndEmptyFile(t *testing.T) {
	s := newStore(t, 500)
	got, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, os.WriteFile(s.Path(), []byte("  \n"), 0o644))
	got, err = s.ReadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)
}
