package config

import (
	"os"
	"strconv"
)

// Config centralizes runtime settings for the HTTP control plane, the
// polling worker, and the scheduler.
type Config struct {
	Port string

	APIAuthToken string

	DatabaseURL string

	HikerAPIKey      string
	HikerBaseURL     string
	ScrapeTimeoutMS  int
	ScrapeMaxRetries int

	AIProviderAPIKey    string
	AIProviderBaseURL   string
	AIModelPrimary      string
	AIBatchMinSize      int
	AIBatchMaxWaitHours int

	EmbeddingModel      string
	EmbeddingCacheTTLS  int
	EmbeddingMaxEntries int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRPS   float64
	RateLimitBurst int

	WorkerEnabled     bool
	WorkerConcurrency int
	WorkerPollSeconds int

	SchedulerEnabled bool

	StaleBatchThresholdHours int
	RecoverStuckMinutes      int
	DiscoverMinFollowers     int
	FreshnessWindowHours     int

	LogLevel string

	ObjectStoreDir      string
	ThumbnailsToPersist int

	CORSAllowedOrigins string
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		APIAuthToken: getEnv("API_AUTH_TOKEN", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		HikerAPIKey:      getEnv("HIKERAPI_KEY", ""),
		HikerBaseURL:     getEnv("HIKERAPI_BASE_URL", "https://api.hikerapi.com"),
		ScrapeTimeoutMS:  getEnvInt("SCRAPE_TIMEOUT_MS", 15000),
		ScrapeMaxRetries: getEnvInt("SCRAPE_MAX_RETRIES", 2),

		AIProviderAPIKey:    getEnv("AI_PROVIDER_API_KEY", ""),
		AIProviderBaseURL:   getEnv("AI_PROVIDER_BASE_URL", "https://api.openai.com/v1"),
		AIModelPrimary:      getEnv("AI_MODEL_PRIMARY", "gpt-4.1-mini"),
		AIBatchMinSize:      getEnvInt("AI_BATCH_MIN_SIZE", 50),
		AIBatchMaxWaitHours: getEnvInt("AI_BATCH_MAX_WAIT_HOURS", 2),

		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingCacheTTLS:  getEnvInt("EMBEDDING_CACHE_TTL_SECONDS", 900),
		EmbeddingMaxEntries: getEnvInt("EMBEDDING_CACHE_MAX_ENTRIES", 2000),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 60),

		WorkerEnabled:     getEnvBool("WORKER_ENABLED", true),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 5),
		WorkerPollSeconds: getEnvInt("WORKER_POLL_SECONDS", 5),

		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),

		StaleBatchThresholdHours: getEnvInt("STALE_BATCH_THRESHOLD_HOURS", 26),
		RecoverStuckMinutes:      getEnvInt("RECOVER_STUCK_MINUTES", 30),
		DiscoverMinFollowers:     getEnvInt("DISCOVER_MIN_FOLLOWERS", 5000),
		FreshnessWindowHours:     getEnvInt("FRESHNESS_WINDOW_HOURS", 168),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		ObjectStoreDir:      getEnv("OBJECT_STORE_DIR", "./data/media"),
		ThumbnailsToPersist: getEnvInt("THUMBNAILS_TO_PERSIST", 7),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
