package application

import (
	"context"
	"sync"

	"xrp-monitor/internal/domain"
)

// LocalLocker is an in-process ChannelLocker. Waiting for a busy channel
// honours context cancellation.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[domain.Channel]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: map[domain.Channel]chan struct{}{}}
}

func (l *LocalLocker) slot(ch domain.Channel) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[ch]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[ch] = s
	}
	return s
}

func (l *LocalLocker) Lock(ctx context.Context, ch domain.Channel) (func(), error) {
	s := l.slot(ch)
	select {
	case s <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-s }) }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
}
