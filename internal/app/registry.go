package app

import (
	"log/slog"
	"sync"
	"time"

	"github.com/freestartupia/startupia/internal/adapter/metrics"
	"github.com/freestartupia/startupia/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Registry holds live sessions keyed by user id. A session that has not been
// used for the idle TTL is dropped on the next eviction pass, like a closed tab.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*registryEntry
	ttl      time.Duration
	clock    clockwork.Clock
	newFn    func(domain.Identity) *Session
	metrics  *metrics.SessionMetrics
}

type registryEntry struct {
	session  *Session
	lastSeen time.Time
}

// NewRegistry creates a registry that builds sessions with newFn.
func NewRegistry(ttl time.Duration, clock clockwork.Clock, newFn func(domain.Identity) *Session, m *metrics.SessionMetrics) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*registryEntry),
		ttl:      ttl,
		clock:    clock,
		newFn:    newFn,
		metrics:  m,
	}
}

// Open returns the user's live session, creating it if needed.
func (r *Registry) Open(identity domain.Identity) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if entry, ok := r.sessions[identity.UserID]; ok && !r.expired(entry, now) {
		entry.lastSeen = now
		return entry.session
	}

	entry := &registryEntry{session: r.newFn(identity), lastSeen: now}
	r.sessions[identity.UserID] = entry
	r.metrics.SetActive(len(r.sessions))
	return entry.session
}

// Get returns the user's live session and marks it as used.
// An expired session that was not evicted yet counts as a miss.
func (r *Registry) Get(userID uuid.UUID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[userID]
	now := r.clock.Now()
	if !ok || r.expired(entry, now) {
		return nil, false
	}
	entry.lastSeen = now
	return entry.session, true
}

// Close drops the user's session.
func (r *Registry) Close(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
	r.metrics.SetActive(len(r.sessions))
}

// Len returns the number of sessions, including expired ones not yet evicted.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Broadcast applies a confirmed count to every live session and returns how
// many sessions received it.
func (r *Registry) Broadcast(update domain.CountUpdate) int {
	r.mu.RLock()
	now := r.clock.Now()
	live := make([]*Session, 0, len(r.sessions))
	for _, entry := range r.sessions {
		if !r.expired(entry, now) {
			live = append(live, entry.session)
		}
	}
	r.mu.RUnlock()

	for _, s := range live {
		s.ApplyConfirmedCount(update.Ref(), update.Count)
	}
	r.metrics.ObserveBroadcast()
	return len(live)
}

// EvictIdle removes expired sessions and returns the count evicted.
func (r *Registry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	evicted := 0
	for id, entry := range r.sessions {
		if r.expired(entry, now) {
			delete(r.sessions, id)
			evicted++
		}
	}

	r.metrics.SetActive(len(r.sessions))
	r.metrics.ObserveEvictions(evicted)
	return evicted
}

// StartEvictionTimer periodically evicts idle sessions until the returned
// stop function is called.
func (r *Registry) StartEvictionTimer(interval time.Duration) func() {
	ticker := r.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if evicted := r.EvictIdle(); evicted > 0 {
					slog.Debug("Evicted idle sessions", "count", evicted, "remaining", r.Len())
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (r *Registry) expired(entry *registryEntry, now time.Time) bool {
	return now.Sub(entry.lastSeen) > r.ttl
}
