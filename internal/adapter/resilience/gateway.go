package resilience

import (
	"context"
	"fmt"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/freestartupia/startupia/internal/adapter/metrics"
	"github.com/freestartupia/startupia/internal/domain"
	"github.com/google/uuid"
)

// domainErrors are answers from a healthy gateway and never trip the breaker.
var domainErrors = []error{
	domain.ErrSubjectNotFound,
	domain.ErrInvalidDirection,
	domain.ErrUnauthenticated,
}

// Gateway decorates a domain.VoteGateway with a circuit breaker and call metrics.
type Gateway struct {
	next    domain.VoteGateway
	cb      circuitbreaker.CircuitBreaker[any]
	metrics *metrics.GatewayMetrics
}

var _ domain.VoteGateway = (*Gateway)(nil)

func NewGateway(next domain.VoteGateway, cb circuitbreaker.CircuitBreaker[any], m *metrics.GatewayMetrics) *Gateway {
	return &Gateway{next: next, cb: cb, metrics: m}
}

func (g *Gateway) State() circuitbreaker.State {
	return g.cb.State()
}

func call[T any](g *Gateway, op string, fn func() (T, error)) (T, error) {
	if !g.cb.TryAcquirePermit() {
		var zero T
		err := fmt.Errorf("gateway %s: %w", op, circuitbreaker.ErrOpen)
		g.metrics.ObserveCall(op, err)
		return zero, err
	}

	val, err := fn()
	Record(g.cb, err, domainErrors...)
	g.metrics.ObserveCall(op, err)
	return val, err
}

func callVoid(g *Gateway, op string, fn func() error) error {
	_, err := call(g, op, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func (g *Gateway) WriteVote(ctx context.Context, w domain.VoteWrite) error {
	return callVoid(g, "write_vote", func() error { return g.next.WriteVote(ctx, w) })
}

func (g *Gateway) GetCount(ctx context.Context, subject domain.SubjectRef) (int, error) {
	return call(g, "get_count", func() (int, error) { return g.next.GetCount(ctx, subject) })
}

func (g *Gateway) ListSubjects(ctx context.Context, kind domain.SubjectKind, userID uuid.UUID) ([]domain.Post, error) {
	return call(g, "list_subjects", func() ([]domain.Post, error) { return g.next.ListSubjects(ctx, kind, userID) })
}
