// Package session owns the authenticated user session and exposes it to
// the rest of the client as the current identity.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tictactoe-client/internal/credentials"
	"tictactoe-client/internal/models"
)

var ErrEmptyToken = errors.New("session token is empty")

// Repository wraps a credential store behind session semantics. The
// session is cached after the first load; Establish and Terminate update
// the store first and the cache second.
type Repository struct {
	store credentials.Store
	now   func() time.Time

	mu      sync.RWMutex
	loaded  bool
	current *models.UserSession
}

func NewRepository(store credentials.Store) *Repository {
	return &Repository{store: store, now: time.Now}
}

// CurrentSession returns the stored session, or ok=false when there is none
// or its token carries an exp claim in the past.
func (r *Repository) CurrentSession(ctx context.Context) (*models.UserSession, bool) {
	current := r.load(ctx)
	if current == nil {
		return nil, false
	}
	if expired(current.Token, r.now()) {
		return nil, false
	}
	s := *current
	return &s, true
}

// StoredUser returns the identity on file even when its token has expired,
// so per-user local state can be cleaned up on a forced logout.
func (r *Repository) StoredUser(ctx context.Context) (models.User, bool) {
	current := r.load(ctx)
	if current == nil {
		return models.User{}, false
	}
	return current.User, true
}

func (r *Repository) load(ctx context.Context) *models.UserSession {
	r.mu.RLock()
	loaded, current := r.loaded, r.current
	r.mu.RUnlock()
	if loaded {
		return current
	}

	rec, ok := r.store.Load(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		r.loaded = true
		if ok {
			r.current = &models.UserSession{Token: rec.Token, User: rec.User}
		}
	}
	return r.current
}

// Establish persists the session before returning, so any request issued
// afterwards finds the token.
func (r *Repository) Establish(ctx context.Context, s models.UserSession) error {
	if strings.TrimSpace(s.Token) == "" {
		return ErrEmptyToken
	}
	if err := r.store.Save(ctx, s.Token, s.User); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = true
	r.current = &s
	return nil
}

// Terminate clears the stored session. It is safe without a session.
func (r *Repository) Terminate(ctx context.Context) error {
	r.mu.Lock()
	r.loaded = true
	r.current = nil
	r.mu.Unlock()

	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Token implements client.TokenSource.
func (r *Repository) Token(ctx context.Context) string {
	s, ok := r.CurrentSession(ctx)
	if !ok {
		return ""
	}
	return s.Token
}

// expired peeks at a JWT exp claim without verifying the signature; the
// server stays the authority. Opaque tokens never expire client-side.
func expired(token string, now time.Time) bool {
	if strings.Count(token, ".") != 2 {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	if now.After(exp.Time) {
		log.Printf("session: stored token expired at %s", exp.Time.Format(time.RFC3339))
		return true
	}
	return false
}
