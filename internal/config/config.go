package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"calm_games/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	// Optional infrastructure; empty means the feature degrades silently
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NatsURL       string
	KafkaBrokers  []string
	AllowedOrigin string

	// Settlement
	ReplayPolicy string // every_perfect | first_perfect_only

	// Rate limits
	APIRateLimit        int
	APIRateWindow       time.Duration
	CompleteRateLimit   int
	CompleteRateWindow  time.Duration
	LedgerAuditSchedule string

	LogLevel string
	LogJSON  bool
}

// ClientConfig configures a process embedding the session controller
type ClientConfig struct {
	APIBaseURL    string
	APIToken      string
	SubmitTimeout time.Duration
	BackDelay     time.Duration
	DefaultReturn string
}

// Load reads server config from env (and .env if present)
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	replayPolicy := os.Getenv("REPLAY_POLICY")
	if replayPolicy == "" {
		replayPolicy = "first_perfect_only"
	}

	auditSchedule := os.Getenv("LEDGER_AUDIT_SCHEDULE")
	if auditSchedule == "" {
		auditSchedule = "0 30 3 * * *" // 03:30 every night
	}

	return &Config{
		AppPort:             port,
		DatabaseURL:         dbURL,
		JWTSecret:           jwtSecret,
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             envInt("REDIS_DB", 0),
		NatsURL:             os.Getenv("NATS_URL"),
		KafkaBrokers:        brokers,
		AllowedOrigin:       os.Getenv("ALLOWED_ORIGIN"),
		ReplayPolicy:        replayPolicy,
		APIRateLimit:        envInt("API_RATE_LIMIT", 120),
		APIRateWindow:       time.Duration(envInt("API_RATE_WINDOW_SECONDS", 60)) * time.Second,
		CompleteRateLimit:   envInt("COMPLETE_RATE_LIMIT", 30),
		CompleteRateWindow:  time.Duration(envInt("COMPLETE_RATE_WINDOW", 60)) * time.Second,
		LedgerAuditSchedule: auditSchedule,
		LogLevel:            os.Getenv("LOG_LEVEL"),
		LogJSON:             os.Getenv("LOG_JSON") == "true",
	}
}

// LoadClient reads the settings needed to talk to the completion backend
func LoadClient() *ClientConfig {
	_ = godotenv.Load()

	base := os.Getenv("API_BASE_URL")
	if base == "" {
		base = "http://127.0.0.1:8080"
	}

	returnTo := os.Getenv("DEFAULT_RETURN")
	if returnTo == "" {
		returnTo = "/games"
	}

	return &ClientConfig{
		APIBaseURL:    strings.TrimRight(base, "/"),
		APIToken:      os.Getenv("API_TOKEN"),
		SubmitTimeout: time.Duration(envInt("SUBMIT_TIMEOUT_SECONDS", 15)) * time.Second,
		BackDelay:     time.Duration(envInt("BACK_DELAY_MS", 300)) * time.Millisecond,
		DefaultReturn: returnTo,
	}
}

// envInt returns a positive int from env or def
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
