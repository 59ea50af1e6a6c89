package main

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tictactoe-client/internal/cache"
	"tictactoe-client/internal/client"
	"tictactoe-client/internal/config"
	"tictactoe-client/internal/credentials"
	"tictactoe-client/internal/models"
	"tictactoe-client/internal/session"
)

func TestParseMove(t *testing.T) {
	row, col, err := parseMove(" 1   2 ")
	if err != nil || row != 1 || col != 2 {
		t.Fatalf("parseMove = %d, %d, %v", row, col, err)
	}
	for _, bad := range []string{"1", "a 2", "1 b", "1 2 3"} {
		if _, _, err := parseMove(bad); err == nil {
			t.Errorf("parseMove(%q) should fail", bad)
		}
	}
}

func TestRenderBoard(t *testing.T) {
	b := models.Board{{-1, 0, 1}, {0, 0, 0}, {0, 0, 0}}
	out := renderBoard(b)
	if !strings.Contains(out, "0  X |   | O") {
		t.Errorf("unexpected render:\n%s", out)
	}
	if strings.Count(out, "---+---+---") != 2 {
		t.Errorf("expected two separators:\n%s", out)
	}
}

var ada = models.User{ID: 7, Name: "Ada", Email: "ada@example.com"}

// newTestApp returns an app whose server answers every request with status.
func newTestApp(t *testing.T, status int) *app {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	repo := session.NewRepository(credentials.NewMemoryStore())
	api, err := client.New(srv.URL, client.WithTokenSource(repo))
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return &app{
		cfg:       &config.Config{CachePath: filepath.Join(t.TempDir(), "sessions.db")},
		api:       api,
		repo:      repo,
		endpoints: client.DefaultEndpoints(),
		in:        bufio.NewReader(strings.NewReader("")),
		out:       io.Discard,
	}
}

func seedGame(t *testing.T, a *app, userID int) {
	t.Helper()
	c, err := cache.Open(a.cfg.CachePath)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	defer c.Close()
	sess := models.GameSession{ID: 3, Board: models.NewBoard(), CurrentPlayer: models.PlayerX, Status: models.StatusOngoing}
	if err := c.SaveSession(context.Background(), userID, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
}

func cachedGame(t *testing.T, a *app, userID int) bool {
	t.Helper()
	c, err := cache.Open(a.cfg.CachePath)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	defer c.Close()
	_, ok, err := c.LastSession(context.Background(), userID)
	if err != nil {
		t.Fatalf("LastSession: %v", err)
	}
	return ok
}

func TestLogoutForgetsCachedGame(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, http.StatusOK)
	if err := a.repo.Establish(ctx, models.UserSession{Token: "tok", User: ada}); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	seedGame(t, a, ada.ID)
	seedGame(t, a, 99)

	if err := a.logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := a.repo.CurrentSession(ctx); ok {
		t.Error("session should be gone after logout")
	}
	if cachedGame(t, a, ada.ID) {
		t.Error("logged out user's game should not be resumable")
	}
	if !cachedGame(t, a, 99) {
		t.Error("other users' games must be kept")
	}
}

func TestExpireForgetsCachedGameOfExpiredToken(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, http.StatusUnauthorized)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := a.repo.Establish(ctx, models.UserSession{Token: token, User: ada}); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	seedGame(t, a, ada.ID)

	if err := a.expire(ctx); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if _, ok := a.repo.StoredUser(ctx); ok {
		t.Error("stored user should be cleared")
	}
	if cachedGame(t, a, ada.ID) {
		t.Error("expired user's game should not be resumable")
	}
}
