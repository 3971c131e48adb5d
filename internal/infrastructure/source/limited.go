package source

import (
	"context"
	"fmt"
	"time"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/domain"

	"golang.org/x/time/rate"
)

// Limited gates a source behind a token bucket. When timeout is set the
// token wait and the fetch share one deadline.
type Limited struct {
	src     application.Source
	limiter *rate.Limiter
	timeout time.Duration
}

var _ application.Source = (*Limited)(nil)

func NewLimited(src application.Source, perSec float64, burst int, timeout time.Duration) *Limited {
	if burst <= 0 {
		burst = 1
	}
	return &Limited{src: src, limiter: rate.NewLimiter(rate.Limit(perSec), burst), timeout: timeout}
}

func (l *Limited) Name() string { return l.src.Name() }

func (l *Limited) Fetch(ctx context.Context, ch domain.Channel) (domain.Quote, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return domain.Quote{}, fmt.Errorf("%s: %w: rate limited: %v", l.src.Name(), domain.ErrSourceUnavailable, err)
	}
	return l.src.Fetch(ctx, ch)
}
