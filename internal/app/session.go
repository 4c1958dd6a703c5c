package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/freestartupia/startupia/internal/adapter/metrics"
	"github.com/freestartupia/startupia/internal/domain"
	"github.com/freestartupia/startupia/internal/feed"
	"github.com/freestartupia/startupia/internal/vote"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// SessionDeps are the collaborators shared by every session.
type SessionDeps struct {
	Gateway        domain.VoteGateway
	Publisher      domain.CountPublisher
	VoteMetrics    *metrics.VoteMetrics
	SessionMetrics *metrics.SessionMetrics
	WriteTimeout   time.Duration
	Clock          clockwork.Clock
}

// Session is one user's client-side state: a vote store with its reconciler
// and the feed that observes it.
type Session struct {
	identity     domain.Identity
	gateway      domain.VoteGateway
	reconciler   *vote.Reconciler
	feed         *feed.Feed
	metrics      *metrics.SessionMetrics
	refreshGroup singleflight.Group
}

func NewSession(identity domain.Identity, deps SessionDeps) *Session {
	f := feed.New()
	r := vote.NewReconciler(deps.Gateway, vote.NewMemoryStore(), vote.NewSubjectLocks(), vote.Options{
		Baseline:     f,
		Observers:    []domain.VoteObserver{f},
		Publisher:    deps.Publisher,
		Metrics:      deps.VoteMetrics,
		WriteTimeout: deps.WriteTimeout,
		Clock:        deps.Clock,
	})
	return &Session{
		identity:   identity,
		gateway:    deps.Gateway,
		reconciler: r,
		feed:       f,
		metrics:    deps.SessionMetrics,
	}
}

func (s *Session) Identity() domain.Identity {
	return s.identity
}

func (s *Session) Feed() *feed.Feed {
	return s.feed
}

// Toggle votes on a subject as the session's user.
func (s *Session) Toggle(ctx context.Context, subject domain.SubjectRef, dir domain.Direction) (domain.VoteState, error) {
	identity := s.identity
	return s.reconciler.Toggle(ctx, &identity, subject, dir)
}

// State returns the session's current view of a subject.
func (s *Session) State(subject domain.SubjectRef) domain.VoteState {
	return s.reconciler.State(subject)
}

// Refresh refetches a whole collection from the gateway and reseeds the vote
// store from it. Concurrent refreshes of the same kind share one fetch.
// Subjects with a toggle in flight keep their pending state.
func (s *Session) Refresh(ctx context.Context, kind domain.SubjectKind) ([]domain.Post, error) {
	v, err, _ := s.refreshGroup.Do(string(kind), func() (any, error) {
		posts, err := s.gateway.ListSubjects(ctx, kind, s.identity.UserID)
		if err != nil {
			s.metrics.ObserveRefresh("error")
			return nil, fmt.Errorf("list %s subjects: %w", kind, err)
		}

		s.feed.Load(kind, posts)

		var pending []domain.SubjectRef
		for _, p := range posts {
			if !s.reconciler.Seed(p.Ref(), p.VoteState()) {
				pending = append(pending, p.Ref())
			}
		}
		for _, ref := range pending {
			s.feed.VoteChanged(domain.VoteEvent{Subject: ref, State: s.reconciler.State(ref), Phase: domain.VoteOptimistic})
		}
		if len(pending) > 0 {
			slog.DebugContext(ctx, "Refresh kept in-flight vote states", "user_id", s.identity.UserID, "count", len(pending))
		}

		s.metrics.ObserveRefresh("ok")
		return s.feed.All(kind), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Post), nil
}

// ApplyConfirmedCount folds a count confirmed elsewhere into the session.
func (s *Session) ApplyConfirmedCount(subject domain.SubjectRef, count int) {
	if s.reconciler.ApplyCount(subject, count) {
		return
	}

	// Not voted on in this session yet: only the feed knows the subject.
	state, ok := s.feed.Baseline(subject)
	if !ok || state.Count == count {
		return
	}
	state.Count = count
	s.feed.VoteChanged(domain.VoteEvent{Subject: subject, State: state, Phase: domain.VoteRefreshed})
}

// Show returns the sorted view for a filter, fetching the collection first if
// this session has never loaded it.
func (s *Session) Show(ctx context.Context, filter feed.Filter) ([]domain.Post, error) {
	kind := filter.Kind
	if kind == "" {
		kind = domain.SubjectPost
	}
	if !s.feed.Loaded(kind) {
		if _, err := s.Refresh(ctx, kind); err != nil {
			return nil, err
		}
	}
	return s.feed.Show(filter), nil
}
