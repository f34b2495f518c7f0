// Package lock serialises seating runs per exam.  Two runs for the same
// exam never overlap; runs for different exams do not block each other.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when the lock for an exam could not be acquired
// before the wait deadline.
var ErrBusy = errors.New("another seating run for this exam is in progress")

// Locker hands out per-exam locks.  The returned unlock func must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, examID uint64) (func(), error)
}

// Local is an in-process keyed mutex used when Redis is not configured.
type Local struct {
	mu    sync.Mutex
	slots map[uint64]chan struct{}
}

// NewLocal returns an empty Local locker.
func NewLocal() *Local {
	return &Local{slots: make(map[uint64]chan struct{})}
}

func (l *Local) slot(examID uint64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[examID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[examID] = ch
	}
	return ch
}

// Lock blocks until the exam is free or ctx is done.  A cancelled or
// expired context yields ErrBusy.
func (l *Local) Lock(ctx context.Context, examID uint64) (func(), error) {
	ch := l.slot(examID)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ErrBusy
	}
	var once sync.Once
	return func() { once.Do(func() { <-ch }) }, nil
}
