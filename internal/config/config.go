package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// AI completion provider selection: auto, openai or gemini.
	AIProvider   string
	OpenAIAPIKey string
	OpenAIOrgID  string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string

	// Push channel (realtime row-change feed).
	RealtimeURL    string
	RealtimeAPIKey string

	// Sync engine timers.
	PollInterval      time.Duration
	ReconcileInterval time.Duration
	PushDebounce      time.Duration
	MessageCacheTTL   time.Duration

	// Outbound WhatsApp template dispatch.
	WhatsAppGraphBaseURL string

	AdminJWTSecret     string
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AIProvider:   strings.ToLower(strings.TrimSpace(getEnv("AI_PROVIDER", "auto"))),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIOrgID:  getEnv("OPENAI_ORG_ID", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		RealtimeURL:    getEnv("REALTIME_URL", ""),
		RealtimeAPIKey: getEnv("REALTIME_API_KEY", ""),

		PollInterval:      getEnvAsDuration("SYNC_POLL_INTERVAL", 10*time.Second),
		ReconcileInterval: getEnvAsDuration("SYNC_RECONCILE_INTERVAL", 30*time.Second),
		PushDebounce:      getEnvAsDuration("SYNC_PUSH_DEBOUNCE", time.Second),
		MessageCacheTTL:   getEnvAsDuration("MESSAGE_CACHE_TTL", 24*time.Hour),

		WhatsAppGraphBaseURL: getEnv("WHATSAPP_GRAPH_BASE_URL", "https://graph.facebook.com/v22.0"),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
