package booking

import (
	"context"
	"sync"
)

// HoldLocker serializes hold creation venue-wide. Acquire blocks until the
// lock is held or ctx is done; the returned func releases it and must be
// safe to call more than once.
type HoldLocker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// MutexLock is the in-process HoldLocker used by single-instance
// deployments.
type MutexLock struct {
	sem chan struct{}
}

func NewMutexLock() *MutexLock {
	return &MutexLock{sem: make(chan struct{}, 1)}
}

func (m *MutexLock) Acquire(ctx context.Context) (func(), error) {
	select {
	case m.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-m.sem }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
