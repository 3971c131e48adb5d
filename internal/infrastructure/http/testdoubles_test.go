package httpserver

import (
	"context"
	"fmt"
	"time"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/domain"

	"github.com/shopspring/decimal"
)

type fakeService struct {
	channels  []domain.Channel
	snap      domain.Snapshot
	err       error
	history   []domain.HistoryRecord
	compacted []domain.Channel
	panics    bool
}

var _ QuoteService = (*fakeService)(nil)

func (f *fakeService) known(ch domain.Channel) error {
	for _, c := range f.channels {
		if c == ch {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", application.ErrUnknownChannel, ch)
}

func (f *fakeService) Channels() []domain.Channel { return f.channels }

func (f *fakeService) GetQuote(_ context.Context, ch domain.Channel) (domain.Snapshot, error) {
	if f.panics {
		panic("boom")
	}
	if err := f.known(ch); err != nil {
		return domain.Snapshot{}, err
	}
	if f.err != nil {
		return domain.Snapshot{}, f.err
	}
	s := f.snap
	s.Channel = ch
	return s, nil
}

func (f *fakeService) History(_ context.Context, ch domain.Channel) ([]domain.HistoryRecord, error) {
	if err := f.known(ch); err != nil {
		return nil, err
	}
	return f.history, nil
}

func (f *fakeService) Compact(_ context.Context, ch domain.Channel) error {
	if err := f.known(ch); err != nil {
		return err
	}
	f.compacted = append(f.compacted, ch)
	return nil
}

func (f *fakeService) Convert(ctx context.Context, ch domain.Channel, amount decimal.Decimal) (application.Conversion, error) {
	if amount.IsNegative() {
		return application.Conversion{}, fmt.Errorf("%w: negative amount", application.ErrBadRequest)
	}
	snap, err := f.GetQuote(ctx, ch)
	if err != nil {
		return application.Conversion{}, err
	}
	return application.Conversion{Snapshot: snap, Amount: amount, Value: amount.Mul(snap.Price)}, nil
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newFake() *fakeService {
	return &fakeService{
		channels: []domain.Channel{"XRP/BRL", "XRP/USD"},
		snap: domain.Snapshot{
			Price:         decimal.RequireFromString("10.5"),
			PercentChange: decimal.NewFromInt(5),
			ObservedAt:    t0,
			Alert:         domain.AlertUp,
		},
		history: []domain.HistoryRecord{
			{Timestamp: t0.Add(-time.Minute), Price: decimal.RequireFromString("10")},
			{Timestamp: t0, Price: decimal.RequireFromString("10.5")},
		},
	}
}
