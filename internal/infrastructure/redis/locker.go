package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xrp-monitor/internal/application"
	"xrp-monitor/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var errLockHeld = errors.New("lock held")

// release only deletes the key while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker is a cross-process application.ChannelLocker on SET NX PX. TTL
// bounds how long a crashed holder can block a channel.
type Locker struct {
	Client *redis.Client
	TTL    time.Duration
	Log    *zap.Logger
}

var _ application.ChannelLocker = (*Locker)(nil)

func NewLocker(client *redis.Client, ttl time.Duration, log *zap.Logger) *Locker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Locker{Client: client, TTL: ttl, Log: log}
}

// TryReserve makes one acquisition attempt.
func (l *Locker) TryReserve(ctx context.Context, key, token string) (bool, error) {
	return l.Client.SetNX(ctx, key, token, l.TTL).Result()
}

// Lock retries with exponential backoff until acquired or ctx ends.
func (l *Locker) Lock(ctx context.Context, ch domain.Channel) (func(), error) {
	key := lockKey(ch)
	token := uuid.NewString()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 10 * time.Millisecond
	exp.MaxInterval = 250 * time.Millisecond
	exp.MaxElapsedTime = 0

	op := func() error {
		ok, err := l.TryReserve(ctx, key, token)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errLockHeld
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(exp, ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, ctxErr)
		}
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// the caller's ctx may already be done
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.Client, []string{key}, token).Err(); err != nil {
			l.Log.Warn("lock.release_failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
