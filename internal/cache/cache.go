// Package cache remembers the last game each user played so the CLI can
// resume it after a restart.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"tictactoe-client/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Cache is a SQLite-backed store holding one session row per user.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the cache at path and applies the
// embedded migrations.
func Open(path string) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	return &Cache{db: db, now: time.Now}, nil
}

// runMigrations applies all up migrations. The migrate instance is not
// closed because that would close db with it.
func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SaveSession replaces the user's remembered session.
func (c *Cache) SaveSession(ctx context.Context, userID int, s models.GameSession) error {
	board, err := json.Marshal(s.Board)
	if err != nil {
		return fmt.Errorf("encode board: %w", err)
	}
	var winner sql.NullString
	if s.Winner != nil {
		winner = sql.NullString{String: string(*s.Winner), Valid: true}
	}

	_, err = c.db.ExecContext(ctx, `
INSERT INTO game_sessions (user_id, session_id, board, current_player, status, winner, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    session_id = excluded.session_id,
    board = excluded.board,
    current_player = excluded.current_player,
    status = excluded.status,
    winner = excluded.winner,
    updated_at = excluded.updated_at`,
		userID, s.ID, string(board), string(s.CurrentPlayer), string(s.Status), winner, c.now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save session %d: %w", s.ID, err)
	}
	return nil
}

// LastSession returns the remembered session; ok is false when there is
// none.
func (c *Cache) LastSession(ctx context.Context, userID int) (models.GameSession, bool, error) {
	var (
		s       models.GameSession
		board   string
		current string
		status  string
		winner  sql.NullString
	)
	err := c.db.QueryRowContext(ctx, `
SELECT session_id, board, current_player, status, winner
FROM game_sessions WHERE user_id = ?`, userID).Scan(&s.ID, &board, &current, &status, &winner)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GameSession{}, false, nil
	}
	if err != nil {
		return models.GameSession{}, false, fmt.Errorf("load session: %w", err)
	}

	if err := json.Unmarshal([]byte(board), &s.Board); err != nil {
		return models.GameSession{}, false, fmt.Errorf("decode board: %w", err)
	}
	s.CurrentPlayer = models.Player(current)
	s.Status = models.GameStatus(status)
	if winner.Valid {
		p := models.Player(winner.String)
		s.Winner = &p
	}
	uid := userID
	s.UserID = &uid
	return s, true, nil
}

func (c *Cache) Forget(ctx context.Context, userID int) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM game_sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("forget session: %w", err)
	}
	return nil
}

// ForUser binds the cache to one user for use as a game recorder.
func (c *Cache) ForUser(userID int) *UserCache {
	return &UserCache{cache: c, userID: userID}
}

type UserCache struct {
	cache  *Cache
	userID int
}

func (u *UserCache) Record(ctx context.Context, s models.GameSession) error {
	return u.cache.SaveSession(ctx, u.userID, s)
}

func (u *UserCache) Forget(ctx context.Context) error {
	return u.cache.Forget(ctx, u.userID)
}
