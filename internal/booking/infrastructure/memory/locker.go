package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ResourceLocker is a keyed mutex. It serializes callers within one
// process only.
type ResourceLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*resourceLock
}

type resourceLock struct {
	ch      chan struct{}
	waiters int
}

// NewResourceLocker creates an empty keyed mutex.
func NewResourceLocker() *ResourceLocker {
	return &ResourceLocker{locks: make(map[uuid.UUID]*resourceLock)}
}

// Lock blocks until the resource is free or ctx is done.
func (l *ResourceLocker) Lock(ctx context.Context, resourceID uuid.UUID) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[resourceID]
	if !ok {
		lock = &resourceLock{ch: make(chan struct{}, 1)}
		l.locks[resourceID] = lock
	}
	lock.waiters++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(resourceID, lock, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(resourceID, lock, true) })
	}, nil
}

func (l *ResourceLocker) release(resourceID uuid.UUID, lock *resourceLock, held bool) {
	if held {
		<-lock.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.waiters--
	if lock.waiters == 0 {
		delete(l.locks, resourceID)
	}
}
