package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/freestartupia/startupia/internal/adapter/postgres"
	"github.com/freestartupia/startupia/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	migrateFn       func(ctx context.Context) (postgres.MigrationReport, error)
	recountAllFn    func(ctx context.Context, kind domain.SubjectKind) (int, error)
	listSubjectsFn  func(ctx context.Context, kind domain.SubjectKind, userID uuid.UUID) ([]domain.Post, error)
	upsertProfileFn func(ctx context.Context, email string) (uuid.UUID, error)
	issueTokenFn    func(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, error)
	closed          bool
}

func (m *mockBackend) Migrate(ctx context.Context) (postgres.MigrationReport, error) {
	if m.migrateFn != nil {
		return m.migrateFn(ctx)
	}
	return postgres.MigrationReport{From: 2, To: 2}, nil
}

func (m *mockBackend) RecountAll(ctx context.Context, kind domain.SubjectKind) (int, error) {
	if m.recountAllFn != nil {
		return m.recountAllFn(ctx, kind)
	}
	return 0, nil
}

func (m *mockBackend) ListSubjects(ctx context.Context, kind domain.SubjectKind, userID uuid.UUID) ([]domain.Post, error) {
	if m.listSubjectsFn != nil {
		return m.listSubjectsFn(ctx, kind, userID)
	}
	return nil, nil
}

func (m *mockBackend) UpsertProfile(ctx context.Context, email string) (uuid.UUID, error) {
	if m.upsertProfileFn != nil {
		return m.upsertProfileFn(ctx, email)
	}
	return uuid.New(), nil
}

func (m *mockBackend) IssueToken(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, error) {
	if m.issueTokenFn != nil {
		return m.issueTokenFn(ctx, userID, ttl)
	}
	return "tok", nil
}

func (m *mockBackend) Close() {
	m.closed = true
}

func run(t *testing.T, b *mockBackend, args ...string) (string, error) {
	t.Helper()
	connect := func(context.Context, string) (Backend, error) { return b, nil }
	cmd := NewRootCommand(connect, "postgres://test", "text")

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func at(day int) time.Time {
	return time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC)
}

func TestMigrate(t *testing.T) {
	b := &mockBackend{}

	out, err := run(t, b, "migrate")

	require.NoError(t, err)
	assert.Equal(t, "schema already at version 2\n", out)
	assert.True(t, b.closed)
}

func TestMigrate_AppliedJSON(t *testing.T) {
	b := &mockBackend{migrateFn: func(context.Context) (postgres.MigrationReport, error) {
		return postgres.MigrationReport{From: 0, To: 2}, nil
	}}

	out, err := run(t, b, "--format", "json", "migrate")

	require.NoError(t, err)
	assert.JSONEq(t, `{"from_version":0,"to_version":2}`, out)
}

func TestMigrate_Error(t *testing.T) {
	b := &mockBackend{migrateFn: func(context.Context) (postgres.MigrationReport, error) {
		return postgres.MigrationReport{}, errors.New("lock timeout")
	}}

	_, err := run(t, b, "migrate")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock timeout")
	assert.True(t, b.closed)
}

func TestNoDatabaseURL(t *testing.T) {
	cmd := NewRootCommand(func(context.Context, string) (Backend, error) {
		t.Fatal("connect must not be called")
		return nil, nil
	}, "", "text")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate"})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, &mockBackend{}, "version", "--format", "yaml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestRecount(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []domain.SubjectKind
	}{
		{"default is all", nil, []domain.SubjectKind{domain.SubjectPost, domain.SubjectStartup}},
		{"all", []string{"all"}, []domain.SubjectKind{domain.SubjectPost, domain.SubjectStartup}},
		{"startup only", []string{"startup"}, []domain.SubjectKind{domain.SubjectStartup}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []domain.SubjectKind
			b := &mockBackend{recountAllFn: func(_ context.Context, kind domain.SubjectKind) (int, error) {
				got = append(got, kind)
				return 3, nil
			}}

			out, err := run(t, b, append([]string{"recount"}, tt.args...)...)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out, "3 recounted")
		})
	}
}

func TestRecount_UnknownKind(t *testing.T) {
	_, err := run(t, &mockBackend{}, "recount", "comment")
	assert.ErrorContains(t, err, "unknown kind")
}

func TestRecount_JSON(t *testing.T) {
	b := &mockBackend{recountAllFn: func(_ context.Context, kind domain.SubjectKind) (int, error) {
		if kind == domain.SubjectPost {
			return 7, nil
		}
		return 2, nil
	}}

	out, err := run(t, b, "recount", "--format", "json")

	require.NoError(t, err)
	assert.JSONEq(t, `[{"kind":"post","recomputed":7},{"kind":"startup","recomputed":2}]`, out)
}

func TestFeed_SortsAndFilters(t *testing.T) {
	userID := uuid.New()
	var gotUser uuid.UUID
	b := &mockBackend{listSubjectsFn: func(_ context.Context, kind domain.SubjectKind, uid uuid.UUID) ([]domain.Post, error) {
		gotUser = uid
		return []domain.Post{
			{ID: uuid.UUID{1}, Kind: kind, Title: "AI notes", UpvotesCount: 5, CreatedAt: at(10)},
			{ID: uuid.UUID{2}, Kind: kind, Title: "AI tools", UpvotesCount: 5, CreatedAt: at(5)},
			{ID: uuid.UUID{3}, Kind: kind, Title: "AI agents", UpvotesCount: 9, CreatedAt: at(20), IsUpvoted: true},
			{ID: uuid.UUID{4}, Kind: kind, Title: "Hiring", UpvotesCount: 50, CreatedAt: at(1)},
		}, nil
	}}

	out, err := run(t, b, "feed", "post", "-q", "ai", "--user", userID.String(), "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)

	var posts []domain.Post
	require.NoError(t, json.Unmarshal([]byte(out), &posts))
	require.Len(t, posts, 3)
	assert.Equal(t, uuid.UUID{3}, posts[0].ID)
	assert.Equal(t, uuid.UUID{2}, posts[1].ID)
	assert.Equal(t, uuid.UUID{1}, posts[2].ID)
}

func TestFeed_TextAndLimit(t *testing.T) {
	b := &mockBackend{listSubjectsFn: func(_ context.Context, kind domain.SubjectKind, _ uuid.UUID) ([]domain.Post, error) {
		return []domain.Post{
			{ID: uuid.UUID{1}, Kind: kind, Title: "Low", UpvotesCount: 1, CreatedAt: at(1)},
			{ID: uuid.UUID{2}, Kind: kind, Title: "High", UpvotesCount: 8, CreatedAt: at(2)},
		}, nil
	}}

	out, err := run(t, b, "feed", "startup", "-n", "1")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "COUNT")
	assert.Contains(t, lines[1], "High")
}

func TestFeed_InvalidUser(t *testing.T) {
	_, err := run(t, &mockBackend{}, "feed", "--user", "nope")
	assert.ErrorContains(t, err, "invalid --user")
}

func TestTokenIssue(t *testing.T) {
	userID := uuid.New()
	var gotEmail string
	var gotTTL time.Duration
	b := &mockBackend{
		upsertProfileFn: func(_ context.Context, email string) (uuid.UUID, error) {
			gotEmail = email
			return userID, nil
		},
		issueTokenFn: func(_ context.Context, uid uuid.UUID, ttl time.Duration) (string, error) {
			assert.Equal(t, userID, uid)
			gotTTL = ttl
			return "secret-token", nil
		},
	}

	out, err := run(t, b, "token", "issue", "--email", " ada@example.com ", "--ttl", "2h", "--format", "json")

	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", gotEmail)
	assert.Equal(t, 2*time.Hour, gotTTL)
	assert.JSONEq(t, `{"user_id":"`+userID.String()+`","access_token":"secret-token","expires_in":"2h0m0s"}`, out)
}

func TestTokenIssue_RequiresEmail(t *testing.T) {
	_, err := run(t, &mockBackend{}, "token", "issue")
	assert.ErrorContains(t, err, "--email is required")
}

func TestVersion(t *testing.T) {
	out, err := run(t, &mockBackend{}, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "startupia dev")
}
