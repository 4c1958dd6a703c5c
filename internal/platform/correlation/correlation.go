// Package correlation carries per-request log fields through a context: the
// request's correlation id and, once authenticated, the acting user.
package correlation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
)

// Header is the HTTP header used to propagate correlation ids.
const Header = "X-Correlation-ID"

const idBytes = 6

var validID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

type fieldsKey struct{}

// fields is copied on every With* call; contexts never share a mutable value.
type fields struct {
	id   string
	user string
}

func from(ctx context.Context) fields {
	f, _ := ctx.Value(fieldsKey{}).(fields)
	return f
}

// NewID returns a random 12-character hex id.
func NewID() string {
	b := make([]byte, idBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Valid reports whether an incoming id is safe to adopt and log.
func Valid(id string) bool {
	return validID.MatchString(id)
}

func WithID(ctx context.Context, id string) context.Context {
	f := from(ctx)
	f.id = id
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithUser records the authenticated user acting in this request.
func WithUser(ctx context.Context, userID string) context.Context {
	f := from(ctx)
	f.user = userID
	return context.WithValue(ctx, fieldsKey{}, f)
}

func ID(ctx context.Context) (string, bool) {
	id := from(ctx).id
	return id, id != ""
}

func User(ctx context.Context) (string, bool) {
	user := from(ctx).user
	return user, user != ""
}

// Handler stamps correlation_id and user_id on records logged with a context
// that carries them.
type Handler struct {
	inner slog.Handler
}

func NewHandler(inner slog.Handler) *Handler {
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	f := from(ctx)
	if f.id != "" {
		r.AddAttrs(slog.String("correlation_id", f.id))
	}
	if f.user != "" {
		r.AddAttrs(slog.String("user_id", f.user))
	}
	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("correlation handler: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}
