package application

import (
	"context"
	"fmt"

	"xrp-monitor/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ChannelDeps is the per-channel state owned by the quote service.
type ChannelDeps struct {
	Channel domain.Channel
	Cache   *PriceCache
	History HistoryStore
}

type QuoteService struct {
	channels map[domain.Channel]ChannelDeps
	order    []domain.Channel
	locker   ChannelLocker
	clock    Clock
	log      *zap.Logger
	metrics  Metrics
	alertPct decimal.Decimal
}

type Option func(*QuoteService)

func WithClock(c Clock) Option              { return func(s *QuoteService) { s.clock = c } }
func WithLocker(l ChannelLocker) Option     { return func(s *QuoteService) { s.locker = l } }
func WithLogger(l *zap.Logger) Option       { return func(s *QuoteService) { s.log = l } }
func WithMetrics(m Metrics) Option          { return func(s *QuoteService) { s.metrics = m } }
func WithAlertThreshold(pct float64) Option { return func(s *QuoteService) { s.alertPct = decimal.NewFromFloat(pct) } }

func NewQuoteService(channels []ChannelDeps, opts ...Option) *QuoteService {
	s := &QuoteService{
		channels: make(map[domain.Channel]ChannelDeps, len(channels)),
		alertPct: decimal.NewFromInt(5),
	}
	for _, c := range channels {
		if _, dup := s.channels[c.Channel]; !dup {
			s.order = append(s.order, c.Channel)
		}
		s.channels[c.Channel] = c
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.locker == nil {
		s.locker = NewLocalLocker()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = NopMetrics{}
	}
	return s
}

// Channels returns the configured channels in configuration order.
func (s *QuoteService) Channels() []domain.Channel {
	out := make([]domain.Channel, len(s.order))
	copy(out, s.order)
	return out
}

func (s *QuoteService) channel(ch domain.Channel) (ChannelDeps, error) {
	c, ok := s.channels[ch]
	if !ok {
		return ChannelDeps{}, fmt.Errorf("%w: %s", ErrUnknownChannel, ch)
	}
	return c, nil
}

// GetQuote returns the current price of ch and its percent change against
// the previous persisted price. The refresh and history append run as one
// critical section per channel. When no source produced a price the error
// wraps ErrNoDataAvailable and nothing is appended.
func (s *QuoteService) GetQuote(ctx context.Context, ch domain.Channel) (domain.Snapshot, error) {
	c, err := s.channel(ch)
	if err != nil {
		return domain.Snapshot{}, err
	}
	log := s.log.With(zap.String("channel", ch.String()))

	unlock, err := s.locker.Lock(ctx, ch)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("lock %s: %w", ch, err)
	}
	defer unlock()

	now := s.clock.Now()
	price, err := c.Cache.GetOrRefresh(ctx, now)
	if err != nil {
		s.metrics.QuoteServed(ch, false)
		log.Warn("quote.no_data", zap.Error(err))
		return domain.Snapshot{}, fmt.Errorf("%w: %w", ErrNoDataAvailable, err)
	}

	window, err := c.History.AppendIfChanged(ctx, domain.HistoryRecord{Timestamp: now, Price: price})
	if err != nil {
		s.metrics.HistoryWriteFailed(ch)
		log.Warn("history.append_failed", zap.Error(err))
	}

	pct := domain.PercentChange(window, price)
	s.metrics.QuoteServed(ch, true)
	return domain.Snapshot{
		Channel:       ch,
		Price:         price,
		PercentChange: pct,
		ObservedAt:    now,
		Alert:         s.alert(pct),
	}, nil
}

// FetchPrice is the flat form of GetQuote for consumers that only render
// numbers; ok is false when no data is available.
func (s *QuoteService) FetchPrice(ctx context.Context, ch domain.Channel) (price, percent float64, ok bool) {
	snap, err := s.GetQuote(ctx, ch)
	if err != nil {
		return 0, 0, false
	}
	return snap.Price.InexactFloat64(), snap.PercentChange.InexactFloat64(), true
}

func (s *QuoteService) alert(pct decimal.Decimal) domain.Alert {
	if !s.alertPct.IsPositive() {
		return domain.AlertNone
	}
	switch {
	case pct.GreaterThanOrEqual(s.alertPct):
		return domain.AlertUp
	case pct.LessThanOrEqual(s.alertPct.Neg()):
		return domain.AlertDown
	default:
		return domain.AlertNone
	}
}

type Conversion struct {
	Snapshot domain.Snapshot
	Amount   decimal.Decimal
	Value    decimal.Decimal
}

// Convert values amount units of the channel's base asset at the current price.
func (s *QuoteService) Convert(ctx context.Context, ch domain.Channel, amount decimal.Decimal) (Conversion, error) {
	if amount.IsNegative() {
		return Conversion{}, fmt.Errorf("%w: negative amount", ErrBadRequest)
	}
	snap, err := s.GetQuote(ctx, ch)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{Snapshot: snap, Amount: amount, Value: amount.Mul(snap.Price)}, nil
}

// History returns the persisted window of ch, oldest first.
func (s *QuoteService) History(ctx context.Context, ch domain.Channel) ([]domain.HistoryRecord, error) {
	c, err := s.channel(ch)
	if err != nil {
		return nil, err
	}
	return c.History.ReadAll(ctx)
}

// Compact normalizes and truncates the persisted history of ch.
func (s *QuoteService) Compact(ctx context.Context, ch domain.Channel) error {
	c, err := s.channel(ch)
	if err != nil {
		return err
	}
	unlock, err := s.locker.Lock(ctx, ch)
	if err != nil {
		return fmt.Errorf("lock %s: %w", ch, err)
	}
	defer unlock()
	if err := c.History.Compact(ctx); err != nil {
		s.log.Warn("history.compact_failed", zap.String("channel", ch.String()), zap.Error(err))
		return err
	}
	return nil
}
