package app

import (
	"context"
	"fmt"
	"time"

	"github.com/freestartupia/startupia/internal/domain"
	"github.com/freestartupia/startupia/internal/feed"
	"github.com/google/uuid"
)

const evictionInterval = time.Minute

// Service is the application layer used by the HTTP handlers.
type Service struct {
	identities domain.IdentitySource
	gateway    domain.VoteGateway
	registry   *Registry
	stopEvict  func()
}

// NewService creates the service and starts the idle-session eviction timer.
func NewService(identities domain.IdentitySource, gateway domain.VoteGateway, registry *Registry) *Service {
	return &Service{
		identities: identities,
		gateway:    gateway,
		registry:   registry,
		stopEvict:  registry.StartEvictionTimer(evictionInterval),
	}
}

// Login resolves an access token and opens the user's session.
func (s *Service) Login(ctx context.Context, accessToken string) (*domain.Identity, error) {
	identity, err := s.identities.ResolveToken(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	s.registry.Open(*identity)
	return identity, nil
}

func (s *Service) Logout(userID uuid.UUID) {
	s.registry.Close(userID)
}

// Identity returns the identity behind a signed-in user id, reopening the
// session if it was evicted.
func (s *Service) Identity(ctx context.Context, userID uuid.UUID) (*domain.Identity, error) {
	if session, ok := s.registry.Get(userID); ok {
		identity := session.Identity()
		return &identity, nil
	}

	identity, err := s.identities.GetIdentity(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	s.registry.Open(*identity)
	return identity, nil
}

// Toggle votes on behalf of identity. A nil identity is rejected before any
// state is touched.
func (s *Service) Toggle(ctx context.Context, identity *domain.Identity, subject domain.SubjectRef, dir domain.Direction) (domain.VoteState, error) {
	if identity == nil {
		return domain.VoteState{}, domain.ErrUnauthenticated
	}
	return s.registry.Open(*identity).Toggle(ctx, subject, dir)
}

// Feed returns the sorted, filtered collection. Anonymous visitors get a fresh
// fetch without vote flags; signed-in users get their session's live view.
func (s *Service) Feed(ctx context.Context, identity *domain.Identity, filter feed.Filter) ([]domain.Post, error) {
	if identity != nil {
		return s.registry.Open(*identity).Show(ctx, filter)
	}

	kind := filter.Kind
	if kind == "" {
		kind = domain.SubjectPost
	}
	posts, err := s.gateway.ListSubjects(ctx, kind, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("list %s subjects: %w", kind, err)
	}

	view := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if filter.Match(p) {
			view = append(view, p)
		}
	}
	return feed.Resort(view), nil
}

// Refresh refetches a collection into the user's session.
func (s *Service) Refresh(ctx context.Context, identity *domain.Identity, kind domain.SubjectKind) ([]domain.Post, error) {
	if identity == nil {
		return nil, domain.ErrUnauthenticated
	}
	return s.registry.Open(*identity).Refresh(ctx, kind)
}

// Stop halts background work.
func (s *Service) Stop() {
	s.stopEvict()
}
