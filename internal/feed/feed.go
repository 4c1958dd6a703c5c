package feed

import (
	"slices"
	"sync"

	"github.com/freestartupia/startupia/internal/domain"
)

// Feed is the session-local cache of posts and startups.
// It observes vote events and keeps its collections sorted.
type Feed struct {
	mu          sync.RWMutex
	collections map[domain.SubjectKind][]domain.Post
	filter      Filter
	view        []domain.Post
}

func New() *Feed {
	return &Feed{
		collections: make(map[domain.SubjectKind][]domain.Post),
		filter:      Filter{}.normalize(),
	}
}

// Load replaces the cached collection of one kind.
func (f *Feed) Load(kind domain.SubjectKind, posts []domain.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.collections[kind] = Resort(posts)
	f.rebuildView()
}

// Loaded reports whether a collection of the kind has been fetched.
func (f *Feed) Loaded(kind domain.SubjectKind) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.collections[kind]
	return ok
}

// Show applies the filter and returns the resulting view in one step.
func (f *Feed) Show(filter Filter) []domain.Post {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.filter = filter.normalize()
	f.rebuildView()
	return slices.Clone(f.view)
}

// All returns the sorted full collection of a kind.
func (f *Feed) All(kind domain.SubjectKind) []domain.Post {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.collections[kind])
}

// View returns the sorted filtered view.
func (f *Feed) View() []domain.Post {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.view)
}

// Baseline implements vote.Baseline from the cached entity.
func (f *Feed) Baseline(subject domain.SubjectRef) (domain.VoteState, bool) {
	p, ok := f.find(subject)
	if !ok {
		return domain.VoteState{}, false
	}
	return p.VoteState(), true
}

// VoteChanged implements domain.VoteObserver.
func (f *Feed) VoteChanged(event domain.VoteEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	posts := f.collections[event.Subject.Kind]
	i := slices.IndexFunc(posts, func(p domain.Post) bool { return p.ID == event.Subject.ID })
	if i < 0 {
		return
	}

	posts = slices.Clone(posts)
	posts[i].UpvotesCount = event.State.Count
	posts[i].IsUpvoted = event.State.Upvoted
	posts[i].IsDownvoted = event.State.Downvoted

	f.collections[event.Subject.Kind] = Resort(posts)
	f.rebuildView()
}

func (f *Feed) find(subject domain.SubjectRef) (domain.Post, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, p := range f.collections[subject.Kind] {
		if p.ID == subject.ID {
			return p, true
		}
	}
	return domain.Post{}, false
}

// rebuildView must be called with f.mu held.
func (f *Feed) rebuildView() {
	view := make([]domain.Post, 0, len(f.collections[f.filter.Kind]))
	for _, p := range f.collections[f.filter.Kind] {
		if f.filter.Match(p) {
			view = append(view, p)
		}
	}
	f.view = Resort(view)
}
