// internal/config/config.go
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Environment string
	LogLevel    string
	LogFile     string

	// Remote API
	APIBaseURL  string
	WSURL       string
	HTTPTimeout time.Duration

	// Token storage: memory, sqlite, postgres or redis
	TokenStore  string
	SQLitePath  string
	DatabaseURL string
	RedisURL    string
	TokenSecret string

	// Cache
	CacheStaleTime        time.Duration
	NotificationStaleTime time.Duration
	QueryRetry            int

	// Polling
	NotificationCountInterval time.Duration
	NotificationListInterval  time.Duration
	ChatUnreadInterval        time.Duration

	// Realtime
	RealtimeEnabled           bool
	RealtimeReconnectInterval time.Duration
	RealtimeMaxReconnects     int

	// Local gateway
	GatewayAddr      string
	GatewayToken     string
	GatewayRateLimit int
	CORSOrigins      []string

	// Optional bootstrap login
	LoginEmail    string
	LoginPassword string
}

func Load() *Config {
	apiBase := strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080/api"), "/")

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),

		APIBaseURL:  apiBase,
		WSURL:       getEnv("WS_URL", deriveWSURL(apiBase)),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		TokenStore:  getEnv("TOKEN_STORE", "memory"),
		SQLitePath:  getEnv("SQLITE_PATH", "ora-client.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		TokenSecret: getEnv("TOKEN_SECRET", ""),

		CacheStaleTime:        getEnvDuration("CACHE_STALE_TIME", 5*time.Minute),
		NotificationStaleTime: getEnvDuration("NOTIFICATION_STALE_TIME", 30*time.Second),
		QueryRetry:            getEnvInt("QUERY_RETRY", 1),

		NotificationCountInterval: getEnvDuration("NOTIFICATION_COUNT_INTERVAL", 15*time.Second),
		NotificationListInterval:  getEnvDuration("NOTIFICATION_LIST_INTERVAL", 30*time.Second),
		ChatUnreadInterval:        getEnvDuration("CHAT_UNREAD_INTERVAL", 30*time.Second),

		RealtimeEnabled:           getEnvBool("REALTIME_ENABLED", true),
		RealtimeReconnectInterval: getEnvDuration("REALTIME_RECONNECT_INTERVAL", 5*time.Second),
		RealtimeMaxReconnects:     getEnvInt("REALTIME_MAX_RECONNECTS", 5),

		GatewayAddr:      getEnv("GATEWAY_ADDR", "127.0.0.1:8090"),
		GatewayToken:     getEnv("GATEWAY_TOKEN", ""),
		GatewayRateLimit: getEnvInt("GATEWAY_RATE_LIMIT", 150),
		CORSOrigins:      getEnvList("CORS_ORIGINS"),

		LoginEmail:    getEnv("LOGIN_EMAIL", ""),
		LoginPassword: getEnv("LOGIN_PASSWORD", ""),
	}
}

// IsDevelopment reports whether the daemon runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// deriveWSURL turns http://host/api into ws://host/api/ws.
func deriveWSURL(apiBase string) string {
	u, err := url.Parse(apiBase)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Bare numbers are seconds
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
