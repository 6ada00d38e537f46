package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Notification dispatch modes.
const (
	NotifyAsync = "async"
	NotifyQueue = "queue"
	NotifySync  = "sync"
	NotifyOff   = "off"
)

// Settings holds the environment-driven runtime configuration.
type Settings struct {
	ServerPort     string
	GinMode        string
	Environment    string
	TrustedProxies []string
	CORSOrigins    []string
	AutoMigrate    bool

	MaxSubmissionBytes  int64
	MaxSubmissionFields int

	NotifyMode     string
	NotifyTimeout  time.Duration
	NotifyWorkers  int
	NotifyBuffer   int
	NotifyQueueKey string

	JWTSecret string

	RedisAddr          string
	RedisPassword      string
	RateLimitRedisAddr string
	RateLimitPerMinute int
}

// LoadSettings reads Settings from the environment, applying defaults.
func LoadSettings() Settings {
	s := Settings{
		ServerPort:     envString("SERVER_PORT", "8080"),
		GinMode:        envString("GIN_MODE", ""),
		Environment:    strings.ToLower(envString("ENVIRONMENT", "development")),
		TrustedProxies: envList("TRUSTED_PROXIES"),
		CORSOrigins:    envList("CORS_ALLOWED_ORIGINS"),
		AutoMigrate:    envBool("DB_AUTO_MIGRATE", false),

		MaxSubmissionBytes:  int64(envInt("MAX_SUBMISSION_BYTES", 1<<20)),
		MaxSubmissionFields: envInt("MAX_SUBMISSION_FIELDS", 200),

		NotifyMode:     strings.ToLower(envString("NOTIFY_MODE", NotifyAsync)),
		NotifyTimeout:  envDuration("NOTIFY_TIMEOUT", 10*time.Second),
		NotifyWorkers:  envInt("NOTIFY_WORKERS", 4),
		NotifyBuffer:   envInt("NOTIFY_BUFFER", 100),
		NotifyQueueKey: envString("NOTIFY_QUEUE_KEY", "formdrop:notifications"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisAddr:          envString("REDIS_ADDR", ""),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RateLimitRedisAddr: envString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 30),
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"*"}
	}
	switch s.NotifyMode {
	case NotifyAsync, NotifyQueue, NotifySync, NotifyOff:
	default:
		s.NotifyMode = NotifyAsync
	}
	return s
}

// IsProduction reports whether ENVIRONMENT=production.
func (s Settings) IsProduction() bool { return s.Environment == "production" }

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
