package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TTT_CREDENTIAL_PATH", "/tmp/creds.json")
	t.Setenv("TTT_CACHE_PATH", "/tmp/sessions.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Fatalf("expected default base url, got %q", cfg.BaseURL)
	}
	if cfg.EngineDelayMin != 200*time.Millisecond || cfg.EngineDelayMax != time.Second {
		t.Fatalf("expected 200ms..1s engine delay, got %s..%s", cfg.EngineDelayMin, cfg.EngineDelayMax)
	}
	if cfg.CredentialBackend != "file" {
		t.Fatalf("expected file credential backend, got %q", cfg.CredentialBackend)
	}
	if cfg.CredentialPath != "/tmp/creds.json" {
		t.Fatalf("expected explicit credential path, got %q", cfg.CredentialPath)
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("TTT_HTTP_TIMEOUT", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("TTT_CREDENTIAL_PATH", "/tmp/creds.json")
	t.Setenv("TTT_CACHE_PATH", "/tmp/sessions.db")

	t.Run("delay range", func(t *testing.T) {
		t.Setenv("TTT_ENGINE_DELAY_MIN", "2s")
		t.Setenv("TTT_ENGINE_DELAY_MAX", "1s")
		if _, err := Load(); err == nil {
			t.Fatal("expected error for inverted delay range")
		}
	})

	t.Run("credential backend", func(t *testing.T) {
		t.Setenv("TTT_CREDENTIAL_BACKEND", "keychain")
		if _, err := Load(); err == nil {
			t.Fatal("expected error for unknown backend")
		}
	})

	t.Run("production secret", func(t *testing.T) {
		t.Setenv("TTT_ENV", "production")
		if _, err := Load(); err == nil {
			t.Fatal("expected error for default jwt secret in production")
		}
	})
}
