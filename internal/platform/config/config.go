// Package config centralizes the environment variables used by both binaries.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config aggregates every parameter the API and the worker need.
type Config struct {
	HTTPAddress string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QueueKeyPrefix     string
	CounterKeyPrefix   string
	TickerKey          string
	CooldownKeyPrefix  string
	SuggestCachePrefix string

	CooldownSeconds int
	BotGuardEnabled bool

	LeaderboardLimit int

	GenAIBaseURL string
	GenAIModel   string
	GenAIAPIKey  string

	AvatarBaseURL string
	SiteURL       string

	AutoMigrate bool

	WorkerMetricsAddress string
}

func Load() (Config, error) {
	// .env is a developer convenience; missing files are fine.
	_ = godotenv.Load()

	// Defaults favor local runs; env vars override in Docker/K8s.
	cfg := Config{
		HTTPAddress:          getEnv("HTTP_ADDRESS", ":8080"),
		PostgresHost:         getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:         getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:         getEnv("POSTGRES_USER", "inspire"),
		PostgresPassword:     getEnv("POSTGRES_PASSWORD", "inspire"),
		PostgresDB:           getEnv("POSTGRES_DB", "inspire_votes"),
		PostgresSSLMode:      getEnv("POSTGRES_SSLMODE", "disable"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		QueueKeyPrefix:       getEnv("REDIS_QUEUE_PREFIX", "queue:votes"),
		CounterKeyPrefix:     getEnv("REDIS_COUNTER_PREFIX", "counter"),
		TickerKey:            getEnv("REDIS_TICKER_KEY", "ticker:recent"),
		CooldownKeyPrefix:    getEnv("REDIS_COOLDOWN_PREFIX", "cooldown"),
		SuggestCachePrefix:   getEnv("REDIS_SUGGEST_CACHE_PREFIX", "suggest"),
		CooldownSeconds:      getEnvAsInt("BOTGUARD_COOLDOWN_SECONDS", 10),
		BotGuardEnabled:      getEnvAsBool("BOTGUARD_ENABLED", true),
		LeaderboardLimit:     getEnvAsInt("LEADERBOARD_LIMIT", 50),
		GenAIBaseURL:         getEnv("GENAI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GenAIModel:           getEnv("GENAI_MODEL", "gemini-2.5-flash"),
		GenAIAPIKey:          os.Getenv("GENAI_API_KEY"),
		AvatarBaseURL:        getEnv("AVATAR_BASE_URL", "https://unavatar.io/twitter"),
		SiteURL:              getEnv("SITE_URL", "inspireone.vercel.app"),
		AutoMigrate:          getEnvAsBool("DB_AUTO_MIGRATE", true),
		WorkerMetricsAddress: getEnv("WORKER_METRICS_ADDRESS", ":9090"),
	}

	dbStr := getEnv("REDIS_DB", "0")
	dbInt, err := strconv.Atoi(dbStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = dbInt

	if cfg.CooldownSeconds < 0 {
		return Config{}, fmt.Errorf("config: BOTGUARD_COOLDOWN_SECONDS must not be negative")
	}

	return cfg, nil
}

func (c Config) PostgresDSN() string {
	// DSN format stays compatible with GORM and migration tooling.
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}
