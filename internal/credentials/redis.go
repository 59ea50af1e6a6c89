package credentials

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"tictactoe-client/internal/models"
)

const DefaultRedisKey = "tictactoe:credentials"

// RedisStore keeps the sealed record under a single key, so a save is one
// SET and readers never see half a record.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	sealer *Sealer
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration // 0 keeps the record until Clear
}

// NewRedisStore connects and pings the server before returning.
func NewRedisStore(ctx context.Context, opts RedisOptions, sealer *Sealer) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, opts.Key, opts.TTL, sealer), nil
}

func NewRedisStoreWithClient(client *redis.Client, key string, ttl time.Duration, sealer *Sealer) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, ttl: ttl, sealer: sealer}
}

func (s *RedisStore) Save(ctx context.Context, token string, user models.User) error {
	rec, err := newRecord(token, user)
	if err != nil {
		return err
	}
	sealed, err := marshalSealed(s.sealer, rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, sealed, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (Record, bool) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("credentials: redis get %s: %v", s.key, err)
		}
		return Record{}, false
	}
	rec, err := unmarshalSealed(s.sealer, data)
	if err != nil {
		log.Printf("credentials: ignoring redis record %s: %v", s.key, err)
		return Record{}, false
	}
	if !rec.complete() {
		return Record{}, false
	}
	return rec, true
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
