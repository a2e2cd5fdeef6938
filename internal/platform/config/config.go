package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Values come from the
// environment so main stays lean.
type Server struct {
	Addr          string
	JWTSigningKey string

	// UsersServiceURL is the base URL of the identity verifier service.
	UsersServiceURL string
	// UsersTimeout bounds a single verifier call.
	UsersTimeout time.Duration

	// FallbackCourierID is the fixed courier used by automatic assignment.
	FallbackCourierID int64
	// SystemCredential is the bearer token forwarded to the verifier on
	// paths not driven by an inbound request (the order-created consumer).
	SystemCredential string

	Kafka KafkaConfig
	Redis RedisConfig

	// DatabaseURL selects the Postgres delivery store when set; the
	// in-memory store is used otherwise.
	DatabaseURL string
}

// KafkaConfig captures broker connectivity for the event publisher/consumer.
type KafkaConfig struct {
	Brokers []string
	GroupID string
}

// RedisConfig captures connectivity for the courier profile cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := getenv("ENTREGAS_ADDR", ":8080")

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:              addr,
		JWTSigningKey:     jwtSigningKey,
		UsersServiceURL:   getenv("USUARIOS_SERVICE_URL", "http://localhost:8081"),
		UsersTimeout:      getduration("USUARIOS_SERVICE_TIMEOUT", 5*time.Second),
		FallbackCourierID: getint64("FALLBACK_COURIER_ID", 1),
		SystemCredential:  os.Getenv("SYSTEM_CREDENTIAL"),
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			GroupID: getenv("KAFKA_GROUP_ID", "entregas-group"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getint("REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getduration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getint64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
