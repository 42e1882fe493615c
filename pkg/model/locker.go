package model

import (
	"context"
	"sync"
)

// Locker provides the per-exam critical section of allocation runs
type Locker interface {
	// Blocks until the key is held or the context is done. The returned function releases the key
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ExamLockKey is the key guarding the assignments of an exam
func ExamLockKey(exam string) string {
	return "seating:exam:" + exam
}

type keyedLocker struct {
	mutex sync.Mutex
	keys  map[string]chan struct{}
}

// NewKeyedLocker returns an in-process Locker
func NewKeyedLocker() Locker {
	return &keyedLocker{
		keys: make(map[string]chan struct{}),
	}
}

func (locker *keyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	locker.mutex.Lock()
	slot, ok := locker.keys[key]
	if !ok {
		slot = make(chan struct{}, 1)
		locker.keys[key] = slot
	}
	locker.mutex.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
