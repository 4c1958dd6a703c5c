package vote

import (
	"sync"

	"github.com/freestartupia/startupia/internal/domain"
)

// StateStore is the single owner of a session's vote states.
type StateStore interface {
	// Get returns the state of a subject if it has been observed.
	Get(subject domain.SubjectRef) (domain.VoteState, bool)
	// LoadOrStore returns the existing state, or stores and returns initial.
	LoadOrStore(subject domain.SubjectRef, initial domain.VoteState) domain.VoteState
	// CompareAndSet replaces the state only if it still equals old.
	CompareAndSet(subject domain.SubjectRef, old, next domain.VoteState) bool
}

// MemoryStore is a mutex-guarded StateStore. Entries are never removed; the
// store lives and dies with its session.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[domain.SubjectRef]domain.VoteState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[domain.SubjectRef]domain.VoteState)}
}

func (s *MemoryStore) Get(subject domain.SubjectRef) (domain.VoteState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[subject]
	return state, ok
}

func (s *MemoryStore) LoadOrStore(subject domain.SubjectRef, initial domain.VoteState) domain.VoteState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.states[subject]; ok {
		return state
	}
	s.states[subject] = initial
	return initial
}

func (s *MemoryStore) CompareAndSet(subject domain.SubjectRef, old, next domain.VoteState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.states[subject]
	if !ok || current != old {
		return false
	}
	s.states[subject] = next
	return true
}

// Len returns the number of observed subjects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// update applies fn to the current state with compare-and-set retries.
// Returns false if the subject has never been observed.
func update(store StateStore, subject domain.SubjectRef, fn func(domain.VoteState) domain.VoteState) (domain.VoteState, bool) {
	for {
		current, ok := store.Get(subject)
		if !ok {
			return domain.VoteState{}, false
		}
		next := fn(current)
		if store.CompareAndSet(subject, current, next) {
			return next, true
		}
	}
}
