package redisstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"xrp-monitor/internal/domain"
	redisstore "xrp-monitor/internal/infrastructure/redis"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const brl = domain.Channel("XRP/BRL")

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheStore_RoundTrip(t *testing.T) {
	mr, client := newClient(t)
	store := redisstore.NewCacheStore(client)
	ctx := context.Background()

	_, ok, err := store.Load(ctx, brl)
	require.NoError(t, err)
	require.False(t, ok)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Store(ctx, brl, domain.CachedQuote{Price: decimal.RequireFromString("2.91"), CachedAt: at, TTL: 5 * time.Minute}))

	got, ok, err := store.Load(ctx, brl)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2.91", got.Price.String())
	require.True(t, got.CachedAt.Equal(at))

	mr.FastForward(6 * time.Minute)
	_, ok, err = store.Load(ctx, brl)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCacheStore_GarbageIsAnError(t *testing.T) {
	mr, client := newClient(t)
	require.NoError(t, mr.Set("xrp-monitor:quote:XRP/BRL", "{nope"))
	_, ok, err := redisstore.NewCacheStore(client).Load(context.Background(), brl)
	require.Error(t, err)
	require.False(t, ok)
}

func TestCacheStore_Unreachable(t *testing.T) {
	mr, client := newClient(t)
	mr.Close()
	_, _, err := redisstore.NewCacheStore(client).Load(context.Background(), brl)
	require.Error(t, err)
}

func TestLocker_TryReserve(t *testing.T) {
	_, client := newClient(t)
	l := redisstore.NewLocker(client, time.Hour, nil)
	ctx := context.Background()

	ok, err := l.TryReserve(ctx, "k1", "a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.TryReserve(ctx, "k1", "b")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLocker_MutualExclusion(t *testing.T) {
	_, client := newClient(t)
	l := redisstore.NewLocker(client, 10*time.Second, nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), brl)
			if err != nil {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxSeen)
}

func TestLocker_ContextEndsWait(t *testing.T) {
	mr, client := newClient(t)
	l := redisstore.NewLocker(client, time.Minute, nil)

	unlock, err := l.Lock(context.Background(), brl)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, brl)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	require.False(t, mr.Exists("xrp-monitor:lock:XRP/BRL"))
}

func TestLocker_ReleaseKeepsForeignToken(t *testing.T) {
	mr, client := newClient(t)
	l := redisstore.NewLocker(client, time.Minute, nil)

	unlock, err := l.Lock(context.Background(), brl)
	require.NoError(t, err)
	// lock expired and was taken by someone else
	require.NoError(t, mr.Set("xrp-monitor:lock:XRP/BRL", "other"))
	unlock()

	v, err := mr.Get("xrp-monitor:lock:XRP/BRL")
	require.NoError(t, err)
	require.Equal(t, "other", v)
}
