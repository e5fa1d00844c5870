// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development default; production
// deployments override through the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RedisConfig carries connection settings for the Redis audit sink.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig carries the outbox publisher settings. Empty brokers disable
// publishing.
type KafkaConfig struct {
	Brokers       []string
	AuditTopic    string
	FlushInterval time.Duration
}

// AnchorConfig controls the ledger collaborator.
type AnchorConfig struct {
	Wallet     string
	Salt       string
	Timeout    time.Duration
	SimLatency time.Duration
}

// Server captures the whole application configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	ShareBaseURL  string
	PostgresURL   string
	SeedDemoData  bool

	VerifyRateLimit  int
	VerifyRateWindow time.Duration

	Redis  RedisConfig
	Kafka  KafkaConfig
	Anchor AnchorConfig
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envString("CREDVAULT_ADDR", ":8080"),
		JWTSigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		ShareBaseURL:  envString("SHARE_BASE_URL", "http://localhost:8080/verify"),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		SeedDemoData:  os.Getenv("SEED_DEMO_DATA") == "true",

		VerifyRateLimit:  envInt("VERIFY_RATE_LIMIT", 30),
		VerifyRateWindow: envDuration("VERIFY_RATE_WINDOW", time.Minute),

		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       envList("KAFKA_BROKERS"),
			AuditTopic:    envString("KAFKA_AUDIT_TOPIC", "credvault.audit"),
			FlushInterval: envDuration("KAFKA_FLUSH_INTERVAL", 5*time.Second),
		},
		Anchor: AnchorConfig{
			Wallet:     envString("ANCHOR_WALLET", "CREDVAULT_DEMO_WALLET"),
			Salt:       envString("ANCHOR_SALT", "dev-record-salt"),
			Timeout:    envDuration("ANCHOR_TIMEOUT", 10*time.Second),
			SimLatency: envDuration("ANCHOR_SIM_LATENCY", 150*time.Millisecond),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
