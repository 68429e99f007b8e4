package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	ModeratorJWTSecret string
	AllowedOrigins     []string
	GeoIPDBPath        string

	AWSRegion    string
	QueueURL     string
	MediaBucket  string
	SignedURLTTL time.Duration

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	VeoModel      string
	VeoOutputURI  string

	GenerationTimeout time.Duration
	VeoPollInterval   time.Duration
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		ModeratorJWTSecret: os.Getenv("MODERATOR_JWT_SECRET"),
		AllowedOrigins:     splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		QueueURL:     os.Getenv("GENERATION_QUEUE_URL"),
		MediaBucket:  os.Getenv("MEDIA_BUCKET"),
		SignedURLTTL: time.Second * time.Duration(getEnvInt("SIGNED_URL_EXPIRATION_SECONDS", 3600)),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		VeoModel:      getEnv("VEO_MODEL", "veo-2.0-generate-001"),
		VeoOutputURI:  os.Getenv("VEO_OUTPUT_URI"),

		GenerationTimeout: time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 1200)),
		VeoPollInterval:   time.Second * time.Duration(getEnvInt("VEO_POLLING_INTERVAL_SECONDS", 15)),
		MaxRetries:        getEnvInt("GENERATION_MAX_RETRIES", 2),
		RetryBaseDelay:    time.Second * time.Duration(getEnvInt("GENERATION_RETRY_BASE_SECONDS", 30)),
		RetryMaxDelay:     time.Second * time.Duration(getEnvInt("GENERATION_RETRY_MAX_SECONDS", 600)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.ModeratorJWTSecret == "" {
		return nil, fmt.Errorf("MODERATOR_JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
