package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type HTTPConfig struct {
	Addr string
}

type WorkerConfig struct {
	BatchSize     int
	BatchInterval time.Duration
}

type AppConfig struct {
	ServiceName    string
	LogLevel       string
	Env            string
	DatabaseURL    string
	RedisURL       string
	NATSURL        string
	JWTSecret      string
	SeedPosts      string
	IdempotencyTTL time.Duration
	HTTP           HTTPConfig
	Worker         WorkerConfig
}

// IsProd reports whether in-memory fallbacks are forbidden.
func (c AppConfig) IsProd() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads the process environment. A .env file in the working directory,
// when present, is merged in first without overriding variables already set.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{
		ServiceName:    strings.TrimSpace(os.Getenv("SERVICE_NAME")),
		LogLevel:       strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		Env:            strings.TrimSpace(os.Getenv("APP_ENV")),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:       strings.TrimSpace(os.Getenv("REDIS_URL")),
		NATSURL:        strings.TrimSpace(os.Getenv("NATS_URL")),
		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		SeedPosts:      strings.TrimSpace(os.Getenv("SEED_POSTS")),
		IdempotencyTTL: envDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		HTTP: HTTPConfig{
			Addr: strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		},
		Worker: WorkerConfig{
			BatchSize:     envInt("WORKER_BATCH_SIZE", 100),
			BatchInterval: envDuration("WORKER_BATCH_INTERVAL", 2*time.Second),
		},
	}
	if cfg.ServiceName == "" {
		return AppConfig{}, errors.New("SERVICE_NAME is required")
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.IsProd() && cfg.JWTSecret == "" {
		return AppConfig{}, errors.New("JWT_SECRET is required in production")
	}
	return cfg, nil
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
