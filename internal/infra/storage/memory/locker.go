package memory

import (
	"context"
	"sync"

	"depositrent/internal/app/middleware"
)

// KeyedLocker serializes holders of the same key within one process. Idle
// keys are forgotten.
type KeyedLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch      chan struct{}
	waiters int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{slots: make(map[string]*lockSlot)}
}

func (l *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.waiters++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, slot, false)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, slot, true) })
	}, nil
}

func (l *KeyedLocker) release(key string, slot *lockSlot, held bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held {
		<-slot.ch
	}
	slot.waiters--
	if slot.waiters == 0 {
		delete(l.slots, key)
	}
}

var _ middleware.Locker = (*KeyedLocker)(nil)
