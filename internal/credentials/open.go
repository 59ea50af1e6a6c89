package credentials

import (
	"context"
	"fmt"

	"tictactoe-client/internal/config"
)

// Open builds the store selected by cfg.CredentialBackend. The returned
// close function releases backend resources.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.CredentialBackend {
	case "memory":
		return NewMemoryStore(), noop, nil
	case "file", "":
		sealer, err := NewSealer(cfg.CredentialKey)
		if err != nil {
			return nil, noop, err
		}
		store, err := NewFileStore(cfg.CredentialPath, sealer)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case "redis":
		sealer, err := NewSealer(cfg.CredentialKey)
		if err != nil {
			return nil, noop, err
		}
		store, err := NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
			TTL:      cfg.CredentialTTL,
		}, sealer)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown credential backend %q", cfg.CredentialBackend)
}
