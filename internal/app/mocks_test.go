package app

import (
	"context"
	"sync"
	"time"

	"github.com/freestartupia/startupia/internal/domain"
	"github.com/google/uuid"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// --- Mock VoteGateway ---

type mockGateway struct {
	writeVoteFn    func(ctx context.Context, w domain.VoteWrite) error
	getCountFn     func(ctx context.Context, subject domain.SubjectRef) (int, error)
	listSubjectsFn func(ctx context.Context, kind domain.SubjectKind, userID uuid.UUID) ([]domain.Post, error)
}

func (m *mockGateway) WriteVote(ctx context.Context, w domain.VoteWrite) error {
	if m.writeVoteFn != nil {
		return m.writeVoteFn(ctx, w)
	}
	return nil
}

func (m *mockGateway) GetCount(ctx context.Context, subject domain.SubjectRef) (int, error) {
	if m.getCountFn != nil {
		return m.getCountFn(ctx, subject)
	}
	return 0, domain.ErrSubjectNotFound
}

func (m *mockGateway) ListSubjects(ctx context.Context, kind domain.SubjectKind, userID uuid.UUID) ([]domain.Post, error) {
	if m.listSubjectsFn != nil {
		return m.listSubjectsFn(ctx, kind, userID)
	}
	return nil, nil
}

// --- Mock IdentitySource ---

type mockIdentities struct {
	resolveTokenFn func(ctx context.Context, token string) (*domain.Identity, error)
	getIdentityFn  func(ctx context.Context, userID uuid.UUID) (*domain.Identity, error)
}

func (m *mockIdentities) ResolveToken(ctx context.Context, token string) (*domain.Identity, error) {
	if m.resolveTokenFn != nil {
		return m.resolveTokenFn(ctx, token)
	}
	return nil, domain.ErrTokenInvalid
}

func (m *mockIdentities) GetIdentity(ctx context.Context, userID uuid.UUID) (*domain.Identity, error) {
	if m.getIdentityFn != nil {
		return m.getIdentityFn(ctx, userID)
	}
	return nil, domain.ErrUnauthenticated
}

// --- Mock CountSubscriber ---

type mockSubscriber struct {
	subscribeCountsFn func(ctx context.Context) (<-chan domain.CountUpdate, error)
}

func (m *mockSubscriber) SubscribeCounts(ctx context.Context) (<-chan domain.CountUpdate, error) {
	return m.subscribeCountsFn(ctx)
}

// --- Recording publisher ---

type recordingPublisher struct {
	mu      sync.Mutex
	updates []domain.CountUpdate
}

func (p *recordingPublisher) PublishCount(_ context.Context, update domain.CountUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, update)
	return nil
}

func testPost(id byte, count int, createdAt int) domain.Post {
	return domain.Post{
		ID:           uuid.UUID{id},
		Kind:         domain.SubjectPost,
		Title:        "post",
		UpvotesCount: count,
		CreatedAt:    epoch.Add(time.Duration(createdAt) * time.Second),
	}
}

func ids(posts []domain.Post) []byte {
	out := make([]byte, len(posts))
	for i, p := range posts {
		out[i] = p.ID[0]
	}
	return out
}

func listing(posts ...domain.Post) func(context.Context, domain.SubjectKind, uuid.UUID) ([]domain.Post, error) {
	return func(_ context.Context, _ domain.SubjectKind, _ uuid.UUID) ([]domain.Post, error) {
		return posts, nil
	}
}
