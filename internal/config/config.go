package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // control API listen address, ex: ":8787"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ServerURL   string        // base URL of the sync backend (ex: http://127.0.0.1:8000)
	HTTPTimeout time.Duration // transport-level bound on backend calls

	BookmarkFile   string // path to the host bookmark file (Bookmarks / places.sqlite / bookmarks.yaml)
	BookmarkFormat string // "chromium" | "firefox" | "homepage"

	AllowedCIDRS []string // who may reach the control API (default: loopback only)

	// Redis (state store)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MARKSYNC_LISTEN_PORT", ":8787"),
		ShutdownTimeout: mustDuration("MARKSYNC_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("MARKSYNC_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MARKSYNC_PRETTY_LOG", true),

		// Sync backend
		ServerURL:   strings.TrimRight(requireEnv("MARKSYNC_SERVER_URL"), "/"),
		HTTPTimeout: mustDuration("MARKSYNC_HTTP_TIMEOUT", 30*time.Second),

		// Host bookmark source
		BookmarkFile:   requireEnv("MARKSYNC_BOOKMARK_FILE"),
		BookmarkFormat: getenv("MARKSYNC_BOOKMARK_FORMAT", "chromium"),

		// Control API access (loopback unless widened explicitly)
		AllowedCIDRS: parseAllowedIPs(getenv("MARKSYNC_ALLOWED_CIDRS", "127.0.0.0/8,::1/128")),

		// Redis settings
		RedisAddr:           requireEnv("MARKSYNC_REDIS_ADDR"),
		RedisUser:           getenv("MARKSYNC_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("MARKSYNC_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("MARKSYNC_REDIS_DB", 0),
		RedisDT:             mustDuration("MARKSYNC_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("MARKSYNC_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("MARKSYNC_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("MARKSYNC_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("MARKSYNC_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("MARKSYNC_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("MARKSYNC_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("MARKSYNC_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("MARKSYNC_REDIS_WARN_THRESHOLD", 3),
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
