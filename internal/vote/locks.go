package vote

import (
	"context"
	"sync"

	"github.com/freestartupia/startupia/internal/domain"
)

// SubjectLocks is a per-subject in-flight guard. At most one holder per subject;
// waiters queue until the holder releases or their context ends.
type SubjectLocks struct {
	mu    sync.Mutex
	slots map[domain.SubjectRef]*lockSlot
}

type lockSlot struct {
	sem  chan struct{}
	refs int // holders + waiters
}

func NewSubjectLocks() *SubjectLocks {
	return &SubjectLocks{slots: make(map[domain.SubjectRef]*lockSlot)}
}

// Lock blocks until the subject is free and returns the release function.
func (l *SubjectLocks) Lock(ctx context.Context, subject domain.SubjectRef) (func(), error) {
	l.mu.Lock()
	slot := l.slot(subject)
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.sem <- struct{}{}:
		return l.releaseFunc(subject, slot), nil
	case <-ctx.Done():
		l.drop(subject, slot)
		return nil, ctx.Err()
	}
}

// TryLock acquires the subject only if nobody holds it.
func (l *SubjectLocks) TryLock(subject domain.SubjectRef) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot := l.slot(subject)
	select {
	case slot.sem <- struct{}{}:
		slot.refs++
		return l.releaseFunc(subject, slot), true
	default:
		return nil, false
	}
}

// InFlight returns the number of subjects that are held or awaited.
func (l *SubjectLocks) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

// slot must be called with l.mu held.
func (l *SubjectLocks) slot(subject domain.SubjectRef) *lockSlot {
	slot, ok := l.slots[subject]
	if !ok {
		slot = &lockSlot{sem: make(chan struct{}, 1)}
		l.slots[subject] = slot
	}
	return slot
}

func (l *SubjectLocks) releaseFunc(subject domain.SubjectRef, slot *lockSlot) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.sem
			l.drop(subject, slot)
		})
	}
}

func (l *SubjectLocks) drop(subject domain.SubjectRef, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, subject)
	}
}
