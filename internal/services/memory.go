package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"tictactoe-client/internal/models"
)

type rateWindow struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps everything in process. It backs local play and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[int]*Account
	emails       map[string]int
	userSessions map[string]time.Time
	games        map[int]*models.GameSession
	stats        map[int]*models.GameStats
	limits       map[string]*rateWindow
	nextUserID   int
	nextGameID   int
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[int]*Account),
		emails:       make(map[string]int),
		userSessions: make(map[string]time.Time),
		games:        make(map[int]*models.GameSession),
		stats:        make(map[int]*models.GameStats),
		limits:       make(map[string]*rateWindow),
		now:          time.Now,
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.emails[key]; exists {
		return nil, ErrUserExists
	}
	s.nextUserID++
	account := &Account{ID: s.nextUserID, Name: name, Email: email, PasswordHash: passwordHash}
	s.users[account.ID] = account
	s.emails[key] = account.ID

	out := *account
	return &out, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.emails[strings.ToLower(email)]
	if !exists {
		return nil, ErrNotFound
	}
	out := *s.users[id]
	return &out, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, userID int) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, exists := s.users[userID]
	if !exists {
		return nil, ErrNotFound
	}
	out := *account
	return &out, nil
}

func (s *MemoryStore) StoreUserSession(ctx context.Context, userID int, sessionID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userSessions[userSessionKey(userID, sessionID)] = s.now().Add(expiry)
	return nil
}

func (s *MemoryStore) HasUserSession(ctx context.Context, userID int, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expires, exists := s.userSessions[userSessionKey(userID, sessionID)]
	return exists && s.now().Before(expires), nil
}

func (s *MemoryStore) DeleteUserSession(ctx context.Context, userID int, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.userSessions, userSessionKey(userID, sessionID))
	return nil
}

func (s *MemoryStore) NextGameID(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGameID++
	return s.nextGameID, nil
}

func (s *MemoryStore) SaveGameSession(ctx context.Context, session *models.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := session.Clone()
	s.games[session.ID] = &stored
	return nil
}

func (s *MemoryStore) GetGameSession(ctx context.Context, gameID int) (*models.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.games[gameID]
	if !exists {
		return nil, ErrNotFound
	}
	out := session.Clone()
	return &out, nil
}

func (s *MemoryStore) RecordResult(ctx context.Context, userID int, status models.GameStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.stats[userID]
	if !exists {
		st = &models.GameStats{Wins: models.IntPtr(0), Losses: models.IntPtr(0), Draws: models.IntPtr(0)}
		s.stats[userID] = st
	}
	switch status {
	case models.StatusXWon:
		*st.Wins++
	case models.StatusOWon:
		*st.Losses++
	case models.StatusDraw:
		*st.Draws++
	}
	return nil
}

func (s *MemoryStore) GetStats(ctx context.Context, userID int) (models.GameStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.stats[userID]
	if !exists {
		return models.GameStats{Wins: models.IntPtr(0), Losses: models.IntPtr(0), Draws: models.IntPtr(0)}, nil
	}
	return models.GameStats{
		Wins:   models.IntPtr(st.WinCount()),
		Losses: models.IntPtr(st.LossCount()),
		Draws:  models.IntPtr(st.DrawCount()),
	}, nil
}

func (s *MemoryStore) CheckRateLimit(ctx context.Context, userID int, action string, limit int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rateLimitKey(userID, action)
	now := s.now()
	w, exists := s.limits[key]
	if !exists || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(window)}
		s.limits[key] = w
	}
	w.count++
	return w.count <= limit, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
