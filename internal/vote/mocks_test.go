package vote

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/freestartupia/startupia/internal/domain"
	"github.com/google/uuid"
)

// --- Mock VoteGateway ---

type mockGateway struct {
	writeVoteFn func(ctx context.Context, w domain.VoteWrite) error
	getCountFn  func(ctx context.Context, subject domain.SubjectRef) (int, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockGateway) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockGateway) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockGateway) WriteVote(ctx context.Context, w domain.VoteWrite) error {
	m.record(w.Mutation.String())
	if m.writeVoteFn != nil {
		return m.writeVoteFn(ctx, w)
	}
	return nil
}

func (m *mockGateway) GetCount(ctx context.Context, subject domain.SubjectRef) (int, error) {
	m.record("get_count")
	if m.getCountFn != nil {
		return m.getCountFn(ctx, subject)
	}
	return 0, domain.ErrSubjectNotFound
}

func (m *mockGateway) ListSubjects(_ context.Context, _ domain.SubjectKind, _ uuid.UUID) ([]domain.Post, error) {
	return nil, nil
}

// --- In-memory backend ---

// memoryBackend keeps vote rows and recounts them like the database procedure.
// A write stages the row change and the recount and commits both or neither.
type memoryBackend struct {
	mockGateway

	mu      sync.Mutex
	base    int
	votes   map[uuid.UUID]domain.Direction
	counts  map[domain.SubjectRef]int
	recount func() error // fault injection, nil means success
}

func newMemoryBackend(base int) *memoryBackend {
	b := &memoryBackend{base: base, votes: map[uuid.UUID]domain.Direction{}, counts: map[domain.SubjectRef]int{}}
	b.writeVoteFn = b.write
	b.getCountFn = func(_ context.Context, subject domain.SubjectRef) (int, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		n, ok := b.counts[subject]
		if !ok {
			return b.base, nil
		}
		return n, nil
	}
	return b
}

func (b *memoryBackend) write(_ context.Context, w domain.VoteWrite) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	staged := maps.Clone(b.votes)
	switch w.Mutation {
	case domain.MutationInsert, domain.MutationUpdate:
		staged[w.Row.UserID] = w.Row.Direction
	case domain.MutationDelete:
		delete(staged, w.Row.UserID)
	default:
		return errors.New("unknown mutation")
	}

	if b.recount != nil {
		if err := b.recount(); err != nil {
			return fmt.Errorf("recalculate count: %w", err)
		}
	}
	n := b.base
	for _, d := range staged {
		n += d.Delta()
	}
	b.votes = staged
	b.counts[w.Row.Subject] = n
	return nil
}

// Rows returns a copy of the committed vote rows.
func (b *memoryBackend) Rows() map[uuid.UUID]domain.Direction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.votes)
}

// --- Recording observer ---

type recordingObserver struct {
	mu     sync.Mutex
	events []domain.VoteEvent
}

func (o *recordingObserver) VoteChanged(event domain.VoteEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) Phases() []domain.VotePhase {
	o.mu.Lock()
	defer o.mu.Unlock()
	phases := make([]domain.VotePhase, len(o.events))
	for i, e := range o.events {
		phases[i] = e.Phase
	}
	return phases
}

func (o *recordingObserver) Last() domain.VoteEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.events[len(o.events)-1]
}

// --- Static baseline ---

type staticBaseline map[domain.SubjectRef]domain.VoteState

func (b staticBaseline) Baseline(subject domain.SubjectRef) (domain.VoteState, bool) {
	state, ok := b[subject]
	return state, ok
}

// --- Mock CountPublisher ---

type mockPublisher struct {
	publishCountFn func(ctx context.Context, update domain.CountUpdate) error
}

func (m *mockPublisher) PublishCount(ctx context.Context, update domain.CountUpdate) error {
	if m.publishCountFn != nil {
		return m.publishCountFn(ctx, update)
	}
	return nil
}
