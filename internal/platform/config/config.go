// Package config builds process configuration from SCRIP_* environment
// variables so main stays lean. Empty infrastructure settings mean "run
// in-memory": the binary boots with no Postgres, Redis or Kafka for local
// work, and main logs loudly about it.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration.
type Config struct {
	Server      Server
	Postgres    Postgres
	Redis       Redis
	Kafka       Kafka
	Attestation Attestation
	Credential  Credential
	Ledger      Ledger
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	JWTSigningKey   string
	ExecutorToken   string
	GovernorToken   string
	ShutdownTimeout time.Duration
}

// Postgres holds the ledger database settings. An empty DSN selects the
// in-memory stores.
type Postgres struct {
	DSN string
}

// Redis holds cache settings. An empty URL disables the registry cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// Kafka holds the audit publisher settings. Empty brokers select the
// store-backed publisher.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Attestation holds the external attestation gateway settings. An empty base
// URL selects the seedable in-memory gateway.
type Attestation struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Credential holds the trust-credential service settings. An empty base URL
// disables the side effect entirely.
type Credential struct {
	BaseURL string
	Timeout time.Duration
}

// Ledger holds domain-level knobs.
type Ledger struct {
	// SchemaID is the capability schema attestations must carry. Empty means
	// main generates one at boot and logs it (dev only).
	SchemaID string
	// MaxLabelBytes bounds reservation labels.
	MaxLabelBytes int
	// AdminParties may revoke any revocable token alongside the issuer.
	AdminParties []string
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envStr("SCRIP_ADDR", ":8080"),
			LogLevel:        envStr("SCRIP_LOG_LEVEL", "info"),
			JWTSigningKey:   envStr("SCRIP_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			ExecutorToken:   envStr("SCRIP_EXECUTOR_TOKEN", "dev-executor-token-change-in-production"),
			GovernorToken:   envStr("SCRIP_GOVERNOR_TOKEN", "dev-governor-token-change-in-production"),
			ShutdownTimeout: envDuration("SCRIP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			DSN: os.Getenv("SCRIP_POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("SCRIP_REDIS_URL"),
			PoolSize:     envInt("SCRIP_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("SCRIP_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("SCRIP_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("SCRIP_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("SCRIP_REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDuration("SCRIP_REGISTRY_CACHE_TTL", 5*time.Minute),
		},
		Kafka: Kafka{
			Brokers: envList("SCRIP_KAFKA_BROKERS"),
			Topic:   envStr("SCRIP_AUDIT_TOPIC", "scrip.audit.events"),
		},
		Attestation: Attestation{
			BaseURL: os.Getenv("SCRIP_ATTESTATION_URL"),
			APIKey:  os.Getenv("SCRIP_ATTESTATION_API_KEY"),
			Timeout: envDuration("SCRIP_ATTESTATION_TIMEOUT", 5*time.Second),
		},
		Credential: Credential{
			BaseURL: os.Getenv("SCRIP_CREDENTIAL_URL"),
			Timeout: envDuration("SCRIP_CREDENTIAL_TIMEOUT", 3*time.Second),
		},
		Ledger: Ledger{
			SchemaID:      os.Getenv("SCRIP_SCHEMA_ID"),
			MaxLabelBytes: envInt("SCRIP_MAX_LABEL_BYTES", 512),
			AdminParties:  envList("SCRIP_ADMIN_PARTIES"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
