package config

import (
	"os"
	"strconv"
	"time"
)

// Storage backends.
const (
	BackendSupabase = "supabase"
	BackendSheets   = "sheets"
	BackendMemory   = "memory"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string
	LogFile  string // optional rotated log file, in addition to stdout

	// Backend selects where sales and the catalog live.
	Backend string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Google Sheets
	SheetsSpreadsheetID  string
	SheetsCredentialFile string

	// Ledger
	Timezone    string
	RecentLimit int

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Offline queue
	QueueDBPath string

	// Observability
	OTLPEndpoint string

	// JWT / Auth
	JWTSecret    string
	AuthRequired bool
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		Backend: getEnv("BACKEND", BackendSupabase),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		SheetsSpreadsheetID:  getEnv("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentialFile: getEnv("SHEETS_CREDENTIALS_FILE", ""),

		Timezone:    getEnv("TIMEZONE", "Asia/Dubai"),
		RecentLimit: getEnvInt("RECENT_LIMIT", 5),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		QueueDBPath: getEnv("QUEUE_DB_PATH", "salon-queue.db"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret:    getEnv("JWT_SECRET", "salon-default-dev-secret-change-me"),
		AuthRequired: getEnvBool("AUTH_REQUIRED", true),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
