package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"tictactoe-client/internal/client"
	"tictactoe-client/internal/credentials"
	"tictactoe-client/internal/models"
)

var ada = models.User{ID: 1, Name: "Ada", Email: "ada@example.com"}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore()
	repo := NewRepository(store)

	_, ok := repo.CurrentSession(ctx)
	require.False(t, ok)
	require.Empty(t, repo.Token(ctx))

	require.NoError(t, repo.Establish(ctx, models.UserSession{Token: "opaque", User: ada}))
	s, ok := repo.CurrentSession(ctx)
	require.True(t, ok)
	require.Equal(t, ada, s.User)
	require.Equal(t, "opaque", repo.Token(ctx))

	rec, ok := store.Load(ctx)
	require.True(t, ok, "establish must persist before returning")
	require.Equal(t, "opaque", rec.Token)

	require.NoError(t, repo.Terminate(ctx))
	require.NoError(t, repo.Terminate(ctx))
	_, ok = repo.CurrentSession(ctx)
	require.False(t, ok)
	_, ok = store.Load(ctx)
	require.False(t, ok)
}

func TestRepositoryReadsExistingStore(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Save(ctx, "persisted", ada))

	repo := NewRepository(store)
	s, ok := repo.CurrentSession(ctx)
	require.True(t, ok)
	require.Equal(t, "persisted", s.Token)
}

func TestRepositoryEstablishRejectsEmptyToken(t *testing.T) {
	repo := NewRepository(credentials.NewMemoryStore())
	require.ErrorIs(t, repo.Establish(context.Background(), models.UserSession{User: ada}), ErrEmptyToken)
}

func TestRepositoryExpiredToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := NewRepository(credentials.NewMemoryStore())
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Establish(ctx, models.UserSession{Token: signedToken(t, now.Add(time.Hour)), User: ada}))
	_, ok := repo.CurrentSession(ctx)
	require.True(t, ok)

	require.NoError(t, repo.Establish(ctx, models.UserSession{Token: signedToken(t, now.Add(-time.Minute)), User: ada}))
	_, ok = repo.CurrentSession(ctx)
	require.False(t, ok)
	require.Empty(t, repo.Token(ctx))

	u, ok := repo.StoredUser(ctx)
	require.True(t, ok, "an expired token still names its user")
	require.Equal(t, ada, u)

	require.NoError(t, repo.Terminate(ctx))
	_, ok = repo.StoredUser(ctx)
	require.False(t, ok)
}

func TestValidation(t *testing.T) {
	require.NoError(t, ValidateEmail("player@example.com"))
	require.ErrorIs(t, ValidateEmail("player@example"), ErrInvalidEmail)
	require.ErrorIs(t, ValidateEmail("not an email"), ErrInvalidEmail)
	require.NoError(t, ValidatePassword("12345678"))
	require.ErrorIs(t, ValidatePassword("1234567"), ErrPasswordTooShort)
	require.NoError(t, ValidateName("Al"))
	require.ErrorIs(t, ValidateName("A"), ErrNameTooShort)
}

func newAuthService(t *testing.T, h http.HandlerFunc) (*AuthService, *Repository, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	repo := NewRepository(credentials.NewMemoryStore())
	api, err := client.New(srv.URL, client.WithTokenSource(repo))
	require.NoError(t, err)
	return NewAuthService(api, repo, client.DefaultEndpoints()), repo, &calls
}

func TestAuthServiceLogin(t *testing.T) {
	ctx := context.Background()
	var loggedOut int32
	svc, repo, calls := newAuthService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "ada@example.com", body["email"])
			_ = json.NewEncoder(w).Encode(models.UserSession{Token: "tok", User: ada})
		case "/auth/logout":
			require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			atomic.AddInt32(&loggedOut, 1)
			_, _ = w.Write([]byte(`{"message":"Successfully logged out"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	_, err := svc.Login(ctx, "ada@", "password123")
	require.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.Login(ctx, "ada@example.com", "short")
	require.ErrorIs(t, err, ErrPasswordTooShort)
	require.Zero(t, atomic.LoadInt32(calls), "validation failures must not reach the server")

	us, err := svc.Login(ctx, " ada@example.com ", "password123")
	require.NoError(t, err)
	require.Equal(t, "tok", us.Token)
	require.Equal(t, "tok", repo.Token(ctx))

	require.NoError(t, svc.Logout(ctx))
	require.Empty(t, repo.Token(ctx))
	require.EqualValues(t, 1, atomic.LoadInt32(&loggedOut))

	require.NoError(t, svc.Logout(ctx), "logout without a session is a local no-op")
	require.EqualValues(t, 1, atomic.LoadInt32(&loggedOut))
}

func TestLogoutSurvivesServerFailure(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newAuthService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	require.NoError(t, repo.Establish(ctx, models.UserSession{Token: "tok", User: ada}))

	require.NoError(t, svc.Logout(ctx))
	_, ok := repo.CurrentSession(ctx)
	require.False(t, ok)
}

func TestAuthServiceRegister(t *testing.T) {
	ctx := context.Background()
	svc, repo, calls := newAuthService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/register", r.URL.Path)
		_ = json.NewEncoder(w).Encode(models.UserSession{Token: "new", User: ada})
	})

	_, err := svc.Register(ctx, "A", "ada@example.com", "password123")
	require.ErrorIs(t, err, ErrNameTooShort)
	require.Zero(t, atomic.LoadInt32(calls))

	_, err = svc.Register(ctx, "Ada", "ada@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, "new", repo.Token(ctx))
}

func TestAuthServiceUnauthorizedLeavesSessionUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newAuthService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
	})
	require.NoError(t, repo.Establish(ctx, models.UserSession{Token: "old", User: ada}))

	_, err := svc.Login(ctx, "ada@example.com", "password123")
	require.True(t, client.IsUnauthorized(err))
	require.Equal(t, "old", repo.Token(ctx))
}
