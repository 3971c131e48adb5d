package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitReady_RetriesUntilPingSucceeds(t *testing.T) {
	calls := 0
	err := waitReady(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestWaitReady_StopsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := waitReady(ctx, func(context.Context) error { return errors.New("connection refused") })
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}
