// Package config loads and validates service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	EventsNone = "none"
	EventsAMQP = "amqp"

	AuthHeader = "header"
	AuthDev    = "dev"

	IdempotencyStore = "store"
	IdempotencyBolt  = "bolt"
)

// Config holds every deployment-provided setting for the API process.
type Config struct {
	Port string

	LogLevel  string
	LogFormat string // json | text

	StorageBackend string
	DatabaseURL    string
	// DBMigrate runs pending goose migrations before serving.
	DBMigrate bool

	EventsBackend string
	AMQPURL       string
	AMQPExchange  string

	AuthMode   string
	AuthHeader string
	DevSubject string

	// CORSAllowedOrigins lists browser origins allowed to call the API. Empty disables CORS.
	CORSAllowedOrigins []string

	IdempotencyBackend string
	BoltPath           string

	// PinDefaultParticipants stores a defaulted split population at write time instead of
	// re-resolving it against current membership on later edits.
	PinDefaultParticipants bool

	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. All problems are reported together.
func Load() (Config, error) {
	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "json")),
		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		EventsBackend:      strings.ToLower(getEnv("EVENTS_BACKEND", EventsNone)),
		AMQPURL:            os.Getenv("AMQP_URL"),
		AMQPExchange:       getEnv("AMQP_EXCHANGE", "trip-wallet.events"),
		AuthMode:           strings.ToLower(getEnv("AUTH_MODE", AuthHeader)),
		AuthHeader:         getEnv("AUTH_HEADER", "X-User-ID"),
		DevSubject:         os.Getenv("DEV_SUBJECT"),
		IdempotencyBackend: strings.ToLower(getEnv("IDEMPOTENCY_BACKEND", IdempotencyStore)),
		BoltPath:           getEnv("BOLT_PATH", "idempotency.db"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		ShutdownTimeout:    10 * time.Second,
	}

	var problems []string

	var err error
	if cfg.DBMigrate, err = getBool("DB_MIGRATE", false); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.PinDefaultParticipants, err = getBool("PIN_DEFAULT_PARTICIPANTS", false); err != nil {
		problems = append(problems, err.Error())
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			problems = append(problems, "SHUTDOWN_TIMEOUT must be a positive duration (e.g. 10s)")
		} else {
			cfg.ShutdownTimeout = d
		}
	}

	problems = append(problems, cfg.validate()...)
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

func (c Config) validate() []string {
	var problems []string
	var missing []string

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, "LOG_LEVEL must be one of debug, info, warn, error")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		problems = append(problems, "LOG_FORMAT must be json or text")
	}

	switch c.StorageBackend {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		problems = append(problems, "STORAGE_BACKEND must be memory or postgres")
	}

	switch c.EventsBackend {
	case EventsNone:
	case EventsAMQP:
		if c.AMQPURL == "" {
			missing = append(missing, "AMQP_URL")
		}
	default:
		problems = append(problems, "EVENTS_BACKEND must be none or amqp")
	}

	switch c.AuthMode {
	case AuthHeader:
		if strings.TrimSpace(c.AuthHeader) == "" {
			missing = append(missing, "AUTH_HEADER")
		}
	case AuthDev:
		if strings.TrimSpace(c.DevSubject) == "" {
			missing = append(missing, "DEV_SUBJECT")
		}
	default:
		problems = append(problems, "AUTH_MODE must be header or dev")
	}

	switch c.IdempotencyBackend {
	case IdempotencyStore:
	case IdempotencyBolt:
		if c.BoltPath == "" {
			missing = append(missing, "BOLT_PATH")
		}
	default:
		problems = append(problems, "IDEMPOTENCY_BACKEND must be store or bolt")
	}

	if len(missing) > 0 {
		problems = append(problems, "required environment variables not set: "+strings.Join(missing, ", "))
	}
	return problems
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + c.Port }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return b, nil
}
