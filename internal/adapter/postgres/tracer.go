package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/freestartupia/startupia/internal/adapter/metrics"
	"github.com/jackc/pgx/v5"
)

// QueryTracer records query latency and failures per statement verb.
type QueryTracer struct {
	metrics *metrics.StoreMetrics
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

func NewQueryTracer(m *metrics.StoreMetrics) *QueryTracer {
	return &QueryTracer{metrics: m}
}

type queryContextKey struct{}

type queryContext struct {
	start     time.Time
	statement string
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryContext{
		start:     time.Now(),
		statement: statementVerb(data.SQL),
	})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}
	t.metrics.ObserveQuery(qctx.statement, time.Since(qctx.start), data.Err)
}

// statementVerb keeps label cardinality bounded: "SELECT", "INSERT", ...
func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	verb := strings.ToUpper(fields[0])
	if len(verb) > 16 {
		verb = verb[:16]
	}
	return verb
}
