package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string // empty: builtin content and bbolt outcome store
	JWTSecret   string // empty: every connection is anonymous

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AllowedOrigins []string
	LogLevel       string
	LogJSON        bool

	// Rooms and sessions
	TickInterval    time.Duration
	MaxRoomCapacity int

	// Storage
	StatsFile        string
	ContentCacheSize int

	// Inbound websocket limits
	WSMessageRate  float64
	WSMessageBurst int

	APIRateLimit  int
	APIRateWindow time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults.
func FromEnv(getenv func(string) string) *Config {
	cfg := &Config{
		AppPort:          str(getenv, "APP_PORT", "8080"),
		DatabaseURL:      getenv("DATABASE_URL"),
		JWTSecret:        getenv("JWT_SECRET"),
		RedisAddr:        getenv("REDIS_ADDR"),
		RedisPassword:    getenv("REDIS_PASSWORD"),
		RedisDB:          num(getenv, "REDIS_DB", 0),
		LogLevel:         str(getenv, "LOG_LEVEL", "info"),
		LogJSON:          getenv("LOG_JSON") == "true",
		TickInterval:     time.Duration(num(getenv, "TICK_INTERVAL_MS", 1000)) * time.Millisecond,
		MaxRoomCapacity:  num(getenv, "MAX_ROOM_CAPACITY", 8),
		StatsFile:        str(getenv, "STATS_FILE", "party_stats.db"),
		ContentCacheSize: num(getenv, "CONTENT_CACHE_SIZE", 128),
		WSMessageRate:    float64(num(getenv, "WS_MSG_RATE", 20)),
		WSMessageBurst:   num(getenv, "WS_MSG_BURST", 40),
		APIRateLimit:     num(getenv, "API_RATE_LIMIT", 60),
		APIRateWindow:    time.Duration(num(getenv, "API_RATE_WINDOW_SECONDS", 60)) * time.Second,
	}

	// origins are comma separated
	if v := getenv("ALLOWED_ORIGIN"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if cfg.MaxRoomCapacity < 2 {
		cfg.MaxRoomCapacity = 2
	}

	return cfg
}

func str(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// num returns def for missing, malformed or non-positive values.
func num(getenv func(string) string, key string, def int) int {
	v := getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	if n == 0 && key != "REDIS_DB" {
		return def
	}
	return n
}
