package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Refresher is what the poller drives; application.QuoteService satisfies it.
type Refresher interface {
	Channels() []domain.Channel
	GetQuote(ctx context.Context, ch domain.Channel) (domain.Snapshot, error)
	Compact(ctx context.Context, ch domain.Channel) error
}

var _ application.Worker = (*Poller)(nil)

// Poller refreshes every channel on a fixed interval so that history keeps
// growing while no dashboard is open.
type Poller struct {
	Service Refresher

	Every          time.Duration
	RetryInitial   time.Duration
	RetryMax       time.Duration
	CompactOnStart bool
	Log            *zap.Logger
}

func (w *Poller) Start(ctx context.Context) {
	log := w.logger()
	if w.Every <= 0 {
		w.Every = time.Minute
	}

	if w.CompactOnStart {
		for _, ch := range w.Service.Channels() {
			if err := w.Service.Compact(ctx, ch); err != nil {
				log.Warn("poller.compact_failed", zap.String("channel", ch.String()), zap.Error(err))
			}
		}
	}

	t := time.NewTicker(w.Every)
	defer t.Stop()

	log.Info("poller_started", zap.Duration("every", w.Every))
	_ = w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("poller_stopped")
			return
		case <-t.C:
			_ = w.RunOnce(ctx)
		}
	}
}

// RunOnce refreshes all channels concurrently and returns the combined
// per-channel failures.
func (w *Poller) RunOnce(ctx context.Context) error {
	chs := w.Service.Channels()
	errs := make([]error, len(chs))

	var g errgroup.Group
	for i, ch := range chs {
		i, ch := i, ch
		g.Go(func() error {
			errs[i] = w.refresh(ctx, ch)
			return nil
		})
	}
	_ = g.Wait()
	return multierr.Combine(errs...)
}

func (w *Poller) refresh(ctx context.Context, ch domain.Channel) (err error) {
	log := w.logger().With(zap.String("channel", ch.String()))
	defer func() {
		if r := recover(); r != nil {
			log.Error("poller.panic", zap.Any("r", r))
			err = fmt.Errorf("%s: panic: %v", ch, r)
		}
	}()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = w.RetryInitial
	if exp.InitialInterval <= 0 {
		exp.InitialInterval = 500 * time.Millisecond
	}
	exp.MaxElapsedTime = w.RetryMax

	attempts := 0
	var snap domain.Snapshot
	op := func() error {
		attempts++
		s, err := w.Service.GetQuote(ctx, ch)
		if err == nil {
			snap = s
			return nil
		}
		if errors.Is(err, application.ErrNoDataAvailable) {
			return err
		}
		return backoff.Permanent(err)
	}
	var b backoff.BackOff = exp
	if w.RetryMax <= 0 {
		b = &backoff.StopBackOff{}
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		log.Warn("poller.refresh_failed", zap.Int("attempts", attempts), zap.Error(err))
		return fmt.Errorf("%s: %w", ch, err)
	}

	fields := []zap.Field{
		zap.String("price", snap.Price.String()),
		zap.String("percent_change", snap.PercentChange.Round(4).String()),
		zap.Int("attempts", attempts),
	}
	if snap.Alert != domain.AlertNone {
		log.Warn("price.alert", append(fields, zap.String("alert", string(snap.Alert)))...)
		return nil
	}
	log.Info("poller.refreshed", fields...)
	return nil
}

func (w *Poller) logger() *zap.Logger {
	if w.Log == nil {
		return zap.NewNop()
	}
	return w.Log
}
