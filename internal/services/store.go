package services

import (
	"context"
	"errors"
	"time"

	"tictactoe-client/internal/models"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("user already exists")
)

// Account is a user as the server stores it.
type Account struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

func (a *Account) User() models.User {
	return models.User{ID: a.ID, Name: a.Name, Email: a.Email}
}

// Store is the server's persistence. MemoryStore and RedisService
// implement it.
type Store interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*Account, error)
	GetUserByEmail(ctx context.Context, email string) (*Account, error)
	GetUser(ctx context.Context, userID int) (*Account, error)

	StoreUserSession(ctx context.Context, userID int, sessionID string, expiry time.Duration) error
	HasUserSession(ctx context.Context, userID int, sessionID string) (bool, error)
	DeleteUserSession(ctx context.Context, userID int, sessionID string) error

	NextGameID(ctx context.Context) (int, error)
	SaveGameSession(ctx context.Context, session *models.GameSession) error
	GetGameSession(ctx context.Context, gameID int) (*models.GameSession, error)

	RecordResult(ctx context.Context, userID int, status models.GameStatus) error
	GetStats(ctx context.Context, userID int) (models.GameStats, error)

	CheckRateLimit(ctx context.Context, userID int, action string, limit int, window time.Duration) (bool, error)

	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisService)(nil)
)
