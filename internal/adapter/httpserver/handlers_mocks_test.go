package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/freestartupia/startupia/internal/domain"
	"github.com/freestartupia/startupia/internal/feed"
	"github.com/freestartupia/startupia/internal/platform/config"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockAppService struct {
	loginFn    func(ctx context.Context, accessToken string) (*domain.Identity, error)
	logoutFn   func(userID uuid.UUID)
	identityFn func(ctx context.Context, userID uuid.UUID) (*domain.Identity, error)
	toggleFn   func(ctx context.Context, identity *domain.Identity, subject domain.SubjectRef, dir domain.Direction) (domain.VoteState, error)
	feedFn     func(ctx context.Context, identity *domain.Identity, filter feed.Filter) ([]domain.Post, error)
	refreshFn  func(ctx context.Context, identity *domain.Identity, kind domain.SubjectKind) ([]domain.Post, error)
}

func (m *mockAppService) Login(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, accessToken)
	}
	return nil, domain.ErrTokenInvalid
}

func (m *mockAppService) Logout(userID uuid.UUID) {
	if m.logoutFn != nil {
		m.logoutFn(userID)
	}
}

func (m *mockAppService) Identity(ctx context.Context, userID uuid.UUID) (*domain.Identity, error) {
	if m.identityFn != nil {
		return m.identityFn(ctx, userID)
	}
	return &domain.Identity{UserID: userID}, nil
}

func (m *mockAppService) Toggle(ctx context.Context, identity *domain.Identity, subject domain.SubjectRef, dir domain.Direction) (domain.VoteState, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, identity, subject, dir)
	}
	return domain.VoteState{}, nil
}

func (m *mockAppService) Feed(ctx context.Context, identity *domain.Identity, filter feed.Filter) ([]domain.Post, error) {
	if m.feedFn != nil {
		return m.feedFn(ctx, identity, filter)
	}
	return nil, nil
}

func (m *mockAppService) Refresh(ctx context.Context, identity *domain.Identity, kind domain.SubjectKind) ([]domain.Post, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, identity, kind)
	}
	return nil, nil
}

// --- Test helpers ---

const testSessionSecret = "test-secret-key-32-bytes-long!!!"

func newTestServer(t *testing.T, app appService, opts ...func(*Server)) *Server {
	t.Helper()

	store := sessions.NewCookieStore([]byte(testSessionSecret))
	store.Options = &sessions.Options{
		Path:   "/",
		MaxAge: 3600,
	}

	srv := &Server{
		echo: echo.New(),
		config: &config.Config{
			SessionMaxAge: time.Hour,
			VoteRateLimit: 100,
			VoteRateBurst: 100,
		},
		app:          app,
		sessionStore: store,
		startTime:    time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withVoteRateLimit(rate float64, burst int) func(*Server) {
	return func(s *Server) {
		s.config.VoteRateLimit = rate
		s.config.VoteRateBurst = burst
	}
}

// sessionCookie returns a signed cookie for userID, as issued by POST /auth/session.
func sessionCookie(t *testing.T, srv *Server, userID uuid.UUID) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	session, err := srv.sessionStore.Get(req, sessionName)
	require.NoError(t, err)
	session.Values[sessionKeyUserID] = userID.String()
	require.NoError(t, session.Save(req, rec))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func serve(srv *Server, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}
