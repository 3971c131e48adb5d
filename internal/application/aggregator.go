package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"xrp-monitor/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Policy string

const (
	PolicyFirstSuccess    Policy = "first_success"
	PolicyWeightedAverage Policy = "weighted_average"
)

// ParsePolicy maps a config value to a Policy; empty selects first_success.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyFirstSuccess:
		return PolicyFirstSuccess, nil
	case PolicyWeightedAverage:
		return PolicyWeightedAverage, nil
	default:
		return "", fmt.Errorf("%w: unknown aggregation policy %q", ErrBadRequest, s)
	}
}

// WeightedSource pairs a source with its trust weight. Weights are ignored
// by the first_success policy, where slice order is the priority order.
type WeightedSource struct {
	Source Source
	Weight decimal.Decimal
}

// Aggregator combines the sources of one channel into a single price.
type Aggregator struct {
	channel domain.Channel
	policy  Policy
	sources []WeightedSource
	log     *zap.Logger
	metrics Metrics
}

func NewAggregator(ch domain.Channel, policy Policy, sources []WeightedSource, log *zap.Logger, m Metrics) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = NopMetrics{}
	}
	return &Aggregator{
		channel: ch,
		policy:  policy,
		sources: sources,
		log:     log.With(zap.String("channel", ch.String()), zap.String("policy", string(policy))),
		metrics: m,
	}
}

func (a *Aggregator) Policy() Policy { return a.policy }

// Aggregate returns one price or an error wrapping ErrAggregationFailed
// together with every individual source failure.
func (a *Aggregator) Aggregate(ctx context.Context) (decimal.Decimal, error) {
	if len(a.sources) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no sources configured for %s", ErrAggregationFailed, a.channel)
	}
	if a.policy == PolicyWeightedAverage {
		return a.weighted(ctx)
	}
	return a.firstSuccess(ctx)
}

func (a *Aggregator) firstSuccess(ctx context.Context) (decimal.Decimal, error) {
	var errs error
	for _, ws := range a.sources {
		q, err := a.fetch(ctx, ws.Source)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		return q.Price, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %w", ErrAggregationFailed, errs)
}

func (a *Aggregator) weighted(ctx context.Context) (decimal.Decimal, error) {
	type result struct {
		quote domain.Quote
		err   error
	}
	results := make([]result, len(a.sources))

	var g errgroup.Group
	for i, ws := range a.sources {
		i, ws := i, ws
		g.Go(func() error {
			q, err := a.fetch(ctx, ws.Source)
			results[i] = result{quote: q, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var (
		errs      error
		sum       decimal.Decimal
		weightSum decimal.Decimal
	)
	for i, r := range results {
		if r.err != nil {
			errs = multierr.Append(errs, r.err)
			continue
		}
		w := a.sources[i].Weight
		if !w.IsPositive() {
			continue
		}
		sum = sum.Add(r.quote.Price.Mul(w))
		weightSum = weightSum.Add(w)
	}
	if weightSum.IsZero() {
		if errs == nil {
			errs = fmt.Errorf("no successful source carries a positive weight")
		}
		return decimal.Zero, fmt.Errorf("%w: %w", ErrAggregationFailed, errs)
	}
	return sum.Div(weightSum), nil
}

func (a *Aggregator) fetch(ctx context.Context, src Source) (domain.Quote, error) {
	start := time.Now()
	q, err := src.Fetch(ctx, a.channel)
	if err == nil && !q.Price.IsPositive() {
		err = fmt.Errorf("%s: %w: %s", src.Name(), domain.ErrSourceNonPositive, q.Price)
	}
	took := time.Since(start)
	a.metrics.SourceFetched(a.channel, src.Name(), err, took)
	if err != nil {
		a.log.Warn("source.fetch_failed", zap.String("source", src.Name()), zap.Duration("took", took), zap.Error(err))
		return domain.Quote{}, err
	}
	a.log.Debug("source.fetch_ok", zap.String("source", src.Name()), zap.String("price", q.Price.String()), zap.Duration("took", took))
	return q, nil
}
