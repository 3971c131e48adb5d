package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"xrp-monitor/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrRepo = errors.New("repo error")
)

type fakeSource struct {
	name  string
	price string
	err   error
	delay time.Duration

	mu    sync.Mutex
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, ch domain.Channel) (domain.Quote, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.Quote{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	return domain.Quote{Channel: ch, Price: decimal.RequireFromString(f.price), Source: f.name}, nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeAggregator returns prices in order, repeating the last one.
type fakeAggregator struct {
	prices []string
	err    error
	calls  int
}

func (f *fakeAggregator) Aggregate(context.Context) (decimal.Decimal, error) {
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	i := f.calls - 1
	if i >= len(f.prices) {
		i = len(f.prices) - 1
	}
	return decimal.RequireFromString(f.prices[i]), nil
}

// fakeHistory mirrors the file store semantics in memory.
type fakeHistory struct {
	mu       sync.Mutex
	records  []domain.HistoryRecord
	limit    int
	writeErr error
}

func (f *fakeHistory) AppendIfChanged(_ context.Context, rec domain.HistoryRecord) ([]domain.HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	window := domain.NormalizeHistory(f.records, f.limit)
	if last, ok := domain.Last(window); !ok || !last.Price.Equal(rec.Price) {
		window = domain.NormalizeHistory(append(window, rec), f.limit)
	}
	if f.writeErr != nil {
		return window, f.writeErr
	}
	f.records = window
	return window, nil
}

func (f *fakeHistory) ReadAll(context.Context) ([]domain.HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.HistoryRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeHistory) Compact(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = domain.NormalizeHistory(f.records, f.limit)
	return nil
}

func (f *fakeHistory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type failingBackend struct{}

func (failingBackend) Load(context.Context, domain.Channel) (domain.CachedQuote, bool, error) {
	return domain.CachedQuote{}, false, ErrRepo
}

func (failingBackend) Store(context.Context, domain.Channel, domain.CachedQuote) error {
	return ErrRepo
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
