package vote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/freestartupia/startupia/internal/adapter/metrics"
	"github.com/freestartupia/startupia/internal/domain"
	"github.com/freestartupia/startupia/internal/platform/retry"
	"github.com/jonboulle/clockwork"
)

const defaultWriteTimeout = 10 * time.Second

// Baseline supplies the state assumed for a subject the store has not observed
// yet, typically the flags and count of the entity already shown in the feed.
type Baseline interface {
	Baseline(subject domain.SubjectRef) (domain.VoteState, bool)
}

// Options carries the optional collaborators of a Reconciler.
type Options struct {
	Baseline     Baseline
	Observers    []domain.VoteObserver
	Publisher    domain.CountPublisher
	Metrics      *metrics.VoteMetrics
	ReadPolicy   retry.Policy
	WriteTimeout time.Duration
	Clock        clockwork.Clock
}

// Reconciler applies vote toggles optimistically and reconciles them with the
// remote gateway.
type Reconciler struct {
	gateway      domain.VoteGateway
	store        StateStore
	locks        *SubjectLocks
	baseline     Baseline
	observers    []domain.VoteObserver
	publisher    domain.CountPublisher
	metrics      *metrics.VoteMetrics
	readPolicy   retry.Policy
	writeTimeout time.Duration
	clock        clockwork.Clock

	// mu orders ApplyCount against rollback. pushed holds, per subject with a
	// toggle in flight, the last confirmed count received since it started.
	mu     sync.Mutex
	pushed map[domain.SubjectRef]*pushedCount
}

type pushedCount struct {
	count int
	seen  bool
}

func NewReconciler(gateway domain.VoteGateway, store StateStore, locks *SubjectLocks, opts Options) *Reconciler {
	if opts.ReadPolicy.Attempts == 0 {
		opts.ReadPolicy = retry.ReadBack()
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Reconciler{
		gateway:      gateway,
		store:        store,
		locks:        locks,
		baseline:     opts.Baseline,
		observers:    opts.Observers,
		publisher:    opts.Publisher,
		metrics:      opts.Metrics,
		readPolicy:   opts.ReadPolicy,
		writeTimeout: opts.WriteTimeout,
		clock:        opts.Clock,
		pushed:       make(map[domain.SubjectRef]*pushedCount),
	}
}

// State returns the current state of a subject, falling back to the baseline.
func (r *Reconciler) State(subject domain.SubjectRef) domain.VoteState {
	if state, ok := r.store.Get(subject); ok {
		return state
	}
	return r.initial(subject)
}

// Toggle applies dir to the subject on behalf of identity.
//
// The predicted state is visible to observers before the gateway is called.
// On success the returned state carries the authoritative count (or the
// prediction, if the count could not be read back). On gateway failure the
// prediction is compensated and the returned state is the restored one,
// alongside an error wrapping domain.ErrRemoteWriteFailed. The restored count
// is the last count pushed through ApplyCount while the write was in flight,
// or the snapshot's count if none arrived.
func (r *Reconciler) Toggle(ctx context.Context, identity *domain.Identity, subject domain.SubjectRef, dir domain.Direction) (domain.VoteState, error) {
	kind := string(subject.Kind)
	if identity == nil {
		r.metrics.ObserveToggle(kind, "unauthenticated")
		return domain.VoteState{}, domain.ErrUnauthenticated
	}
	if !subject.Kind.Allows(dir) {
		r.metrics.ObserveToggle(kind, "invalid")
		return domain.VoteState{}, fmt.Errorf("%w: %q not allowed on %s", domain.ErrInvalidDirection, dir, subject.Kind)
	}

	unlock, err := r.locks.Lock(ctx, subject)
	if err != nil {
		return r.State(subject), fmt.Errorf("waiting for in-flight vote on %s: %w", subject, err)
	}
	defer unlock()

	r.beginFlight(subject)
	defer r.endFlight(subject)

	tr := r.predict(subject, dir)
	r.notify(subject, tr.After, domain.VoteOptimistic)

	done := r.metrics.TrackInFlight()
	defer done()

	// The write must reach confirm or compensate even if the caller goes away.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
	defer cancel()

	start := r.clock.Now()
	err = r.gateway.WriteVote(writeCtx, tr.Write(subject, identity.UserID))
	r.metrics.ObserveRemote(tr.Mutation.String(), r.clock.Since(start))

	if err != nil {
		restored := r.rollback(subject, tr)
		r.metrics.ObserveRollback(kind)
		r.metrics.ObserveToggle(kind, "rolled_back")
		slog.WarnContext(ctx, "Vote rolled back",
			"subject_id", subject.ID, "kind", kind, "user_id", identity.UserID,
			"mutation", tr.Mutation.String(), "error", err)
		r.notify(subject, restored, domain.VoteRolledBack)
		return restored, fmt.Errorf("%w: %s vote: %w", domain.ErrRemoteWriteFailed, tr.Mutation, err)
	}

	r.metrics.ObserveToggle(kind, tr.Mutation.Outcome())
	return r.confirm(writeCtx, subject), nil
}

// ApplyCount stores a server-confirmed count for an observed subject, keeping
// the caller's flags. Returns false if the subject was never observed.
func (r *Reconciler) ApplyCount(subject domain.SubjectRef, count int) bool {
	r.mu.Lock()
	state, ok := update(r.store, subject, func(s domain.VoteState) domain.VoteState {
		s.Count = count
		return s
	})
	if p := r.pushed[subject]; ok && p != nil {
		p.count, p.seen = count, true
	}
	r.mu.Unlock()

	if ok {
		r.notify(subject, state, domain.VoteRefreshed)
	}
	return ok
}

// Seed replaces the state of a subject with authoritative state, unless a
// toggle on it is in flight. Reports whether the state was replaced.
func (r *Reconciler) Seed(subject domain.SubjectRef, state domain.VoteState) bool {
	unlock, ok := r.locks.TryLock(subject)
	if !ok {
		return false
	}
	defer unlock()

	r.store.LoadOrStore(subject, state)
	update(r.store, subject, func(domain.VoteState) domain.VoteState { return state })
	return true
}

func (r *Reconciler) initial(subject domain.SubjectRef) domain.VoteState {
	if r.baseline != nil {
		if state, ok := r.baseline.Baseline(subject); ok {
			return state
		}
	}
	return domain.VoteState{}
}

func (r *Reconciler) predict(subject domain.SubjectRef, dir domain.Direction) Transition {
	r.store.LoadOrStore(subject, r.initial(subject))
	for {
		current, _ := r.store.Get(subject)
		tr := Next(current, dir)
		if r.store.CompareAndSet(subject, current, tr.After) {
			return tr
		}
	}
}

func (r *Reconciler) beginFlight(subject domain.SubjectRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushed[subject] = &pushedCount{}
}

func (r *Reconciler) endFlight(subject domain.SubjectRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pushed, subject)
}

// rollback puts back the flags held before the prediction. A failed write is
// in no confirmed count, so a count pushed meanwhile replaces the snapshot's
// count as is.
func (r *Reconciler) rollback(subject domain.SubjectRef, tr Transition) domain.VoteState {
	r.mu.Lock()
	defer r.mu.Unlock()

	restored := tr.Before
	if p := r.pushed[subject]; p != nil && p.seen {
		restored.Count = p.count
	}
	state, _ := update(r.store, subject, func(domain.VoteState) domain.VoteState { return restored })
	return state
}

func (r *Reconciler) confirm(ctx context.Context, subject domain.SubjectRef) domain.VoteState {
	count, err := retry.Do(ctx, r.readPolicy, retry.StopOn(domain.ErrSubjectNotFound), func(ctx context.Context) (int, error) {
		return r.gateway.GetCount(ctx, subject)
	})
	if err != nil {
		r.metrics.ObserveStaleRead()
		slog.WarnContext(ctx, "Keeping predicted vote count",
			"subject_id", subject.ID, "kind", string(subject.Kind),
			"error", errors.Join(domain.ErrStaleReadAfterWrite, err))
		return r.State(subject)
	}

	state, _ := update(r.store, subject, func(s domain.VoteState) domain.VoteState {
		s.Count = count
		return s
	})
	r.notify(subject, state, domain.VoteConfirmed)

	if r.publisher != nil {
		msg := domain.CountUpdate{SubjectID: subject.ID, Kind: subject.Kind, Count: count}
		if err := r.publisher.PublishCount(ctx, msg); err != nil {
			slog.WarnContext(ctx, "Failed to publish confirmed count", "subject_id", subject.ID, "error", err)
		}
	}
	return state
}

func (r *Reconciler) notify(subject domain.SubjectRef, state domain.VoteState, phase domain.VotePhase) {
	event := domain.VoteEvent{Subject: subject, State: state, Phase: phase}
	for _, o := range r.observers {
		o.VoteChanged(event)
	}
}
