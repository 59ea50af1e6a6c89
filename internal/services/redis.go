package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tictactoe-client/internal/config"
	"tictactoe-client/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *redis.Client
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client}, nil
}

func (s *RedisService) CreateUser(ctx context.Context, name, email, passwordHash string) (*Account, error) {
	emailKey := fmt.Sprintf(KeyUserEmail, strings.ToLower(email))

	id, err := s.client.Incr(ctx, KeyNextUserID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate user id: %w", err)
	}

	claimed, err := s.client.SetNX(ctx, emailKey, id, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim email: %w", err)
	}
	if !claimed {
		return nil, ErrUserExists
	}

	account := &Account{ID: int(id), Name: name, Email: email, PasswordHash: passwordHash}
	data, err := json.Marshal(account)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := s.client.Set(ctx, fmt.Sprintf(KeyUserInfo, account.ID), data, 0).Err(); err != nil {
		s.client.Del(ctx, emailKey)
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return account, nil
}

func (s *RedisService) GetUserByEmail(ctx context.Context, email string) (*Account, error) {
	id, err := s.client.Get(ctx, fmt.Sprintf(KeyUserEmail, strings.ToLower(email))).Int()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	return s.GetUser(ctx, id)
}

func (s *RedisService) GetUser(ctx context.Context, userID int) (*Account, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyUserInfo, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &account, nil
}

func (s *RedisService) StoreUserSession(ctx context.Context, userID int, sessionID string, expiry time.Duration) error {
	return s.client.Set(ctx, userSessionKey(userID, sessionID), time.Now().Unix(), expiry).Err()
}

func (s *RedisService) HasUserSession(ctx context.Context, userID int, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, userSessionKey(userID, sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n == 1, nil
}

func (s *RedisService) DeleteUserSession(ctx context.Context, userID int, sessionID string) error {
	return s.client.Del(ctx, userSessionKey(userID, sessionID)).Err()
}

func (s *RedisService) NextGameID(ctx context.Context) (int, error) {
	id, err := s.client.Incr(ctx, KeyNextGameID).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate game id: %w", err)
	}
	return int(id), nil
}

func (s *RedisService) SaveGameSession(ctx context.Context, session *models.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal game session: %w", err)
	}

	key := fmt.Sprintf(KeyGameSession, session.ID)
	if err := s.client.Set(ctx, key, data, TTLGameSession).Err(); err != nil {
		return fmt.Errorf("failed to save game session: %w", err)
	}
	return nil
}

func (s *RedisService) GetGameSession(ctx context.Context, gameID int) (*models.GameSession, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyGameSession, gameID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game session: %w", err)
	}

	var session models.GameSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game session: %w", err)
	}
	return &session, nil
}

func (s *RedisService) RecordResult(ctx context.Context, userID int, status models.GameStatus) error {
	var field string
	switch status {
	case models.StatusXWon:
		field = "wins"
	case models.StatusOWon:
		field = "losses"
	case models.StatusDraw:
		field = "draws"
	default:
		return nil
	}
	return s.client.HIncrBy(ctx, fmt.Sprintf(KeyUserStats, userID), field, 1).Err()
}

func (s *RedisService) GetStats(ctx context.Context, userID int) (models.GameStats, error) {
	fields, err := s.client.HGetAll(ctx, fmt.Sprintf(KeyUserStats, userID)).Result()
	if err != nil {
		return models.GameStats{}, fmt.Errorf("failed to get stats: %w", err)
	}

	count := func(name string) *int {
		n, _ := strconv.Atoi(fields[name])
		return models.IntPtr(n)
	}
	return models.GameStats{
		Wins:   count("wins"),
		Losses: count("losses"),
		Draws:  count("draws"),
	}, nil
}

func (s *RedisService) CheckRateLimit(ctx context.Context, userID int, action string, limit int, window time.Duration) (bool, error) {
	key := rateLimitKey(userID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// DeleteGameSession and ClearRateLimit are used by tests to clean up.
func (s *RedisService) DeleteGameSession(ctx context.Context, gameID int) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyGameSession, gameID)).Err()
}

func (s *RedisService) ClearRateLimit(ctx context.Context, userID int, action string) error {
	return s.client.Del(ctx, rateLimitKey(userID, action)).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}
