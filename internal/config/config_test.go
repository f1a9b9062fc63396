package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.test")
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "https://api.test" {
		t.Fatalf("unexpected base url %q", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != defaultHTTPTimeout || cfg.CacheTTL != defaultCacheTTL {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.PageSize != defaultPageSize {
		t.Fatalf("unexpected page size %d", cfg.PageSize)
	}
	if cfg.StoreBackend != "leveldb" || cfg.CacheBackend != "local" {
		t.Fatalf("unexpected backends: %+v", cfg)
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without API_BASE_URL")
	}
}

func TestLoadTrimsTrailingSlash(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.test/")
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "https://api.test" {
		t.Fatalf("expected trimmed base url, got %q", cfg.APIBaseURL)
	}
}

func TestLoadSecondsOverridesDuration(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.test")
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("HTTP_TIMEOUT_SECONDS", "3")
	t.Setenv("HTTP_TIMEOUT", "45s")
	t.Setenv("CACHE_TTL", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("expected seconds form to win, got %s", cfg.HTTPTimeout)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Fatalf("expected duration form, got %s", cfg.CacheTTL)
	}
}

func TestLoadValidatesBackends(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.test")
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("STORE_BACKEND", "postgres")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}

	t.Setenv("STORE_BACKEND", "leveldb")
	t.Setenv("CACHE_BACKEND", "redis")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without REDIS_URL")
	}

	t.Setenv("CACHE_BACKEND", "sqlite")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
