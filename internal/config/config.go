package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/subosito/gotenv"
)

const (
	defaultAppName        = "SwiftWallet"
	defaultLogLevel       = "info"
	defaultHTTPTimeout    = 15 * time.Second
	defaultCacheTTL       = time.Hour
	defaultPageSize       = 20
	defaultStoreBackend   = "leveldb"
	defaultCacheBackend   = "local"
	httpTimeoutSecondsVar = "HTTP_TIMEOUT_SECONDS"
	httpTimeoutDurVar     = "HTTP_TIMEOUT"
	cacheTTLSecondsVar    = "CACHE_TTL_SECONDS"
	cacheTTLDurVar        = "CACHE_TTL"
)

// Config captures application runtime configuration loaded from environment
// variables, with an optional .env file read first.
type Config struct {
	AppName      string
	APIBaseURL   string
	DataDir      string
	LogLevel     string
	HTTPTimeout  time.Duration
	CacheTTL     time.Duration
	PageSize     int
	SealKey      string
	DeviceID     string
	StoreBackend string // leveldb | memory | postgres
	CacheBackend string // local | memory | redis
	DatabaseURL  string
	RedisURL     string
}

// Load reads configuration values from the environment and populates a
// Config instance. API_BASE_URL is the only mandatory value.
func Load() (Config, error) {
	gotenv.Load()

	cfg := Config{
		AppName:      getEnv("APP_NAME", defaultAppName),
		APIBaseURL:   strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
		DataDir:      os.Getenv("DATA_DIR"),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		HTTPTimeout:  defaultHTTPTimeout,
		CacheTTL:     defaultCacheTTL,
		PageSize:     defaultPageSize,
		SealKey:      os.Getenv("SEAL_KEY"),
		DeviceID:     os.Getenv("DEVICE_ID"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", defaultStoreBackend)),
		CacheBackend: strings.ToLower(getEnv("CACHE_BACKEND", defaultCacheBackend)),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
	}

	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("API_BASE_URL must be set")
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".swiftwallet")
	}

	if v := os.Getenv(httpTimeoutSecondsVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", httpTimeoutSecondsVar, err)
		}
		cfg.HTTPTimeout = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(httpTimeoutDurVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", httpTimeoutDurVar, err)
		}
		cfg.HTTPTimeout = d
	}

	if v := os.Getenv(cacheTTLSecondsVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", cacheTTLSecondsVar, err)
		}
		cfg.CacheTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(cacheTTLDurVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", cacheTTLDurVar, err)
		}
		cfg.CacheTTL = d
	}

	if v := os.Getenv("PAGE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return Config{}, fmt.Errorf("invalid PAGE_SIZE %q", v)
		}
		cfg.PageSize = size
	}

	switch cfg.StoreBackend {
	case "leveldb", "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when STORE_BACKEND=postgres")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.CacheBackend {
	case "local", "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when CACHE_BACKEND=redis")
		}
	default:
		return Config{}, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}

	return cfg, nil
}

// StorePath returns the on-disk location of the LevelDB store.
func (c Config) StorePath() string {
	return filepath.Join(c.DataDir, "store")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
