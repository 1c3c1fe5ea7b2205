// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	minSecretLength   = 32
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the REST API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health endpoint. Empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment ("local", "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zerolog level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// MigrateOnStart applies embedded migrations before the server starts serving.
	MigrateOnStart bool `mapstructure:"MIGRATE_ON_START"`

	// JWTAccessSecret signs access tokens. Must differ from JWTRefreshSecret.
	JWTAccessSecret string `mapstructure:"JWT_ACCESS_SECRET"`
	// JWTRefreshSecret signs refresh tokens.
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	// JWTIssuer is the iss claim set on both token kinds.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "7d" or "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 10.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// CookieSecure forces the Secure flag on the refresh cookie outside production.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`
	// CookieSameSite is "strict" or "lax".
	CookieSameSite string `mapstructure:"COOKIE_SAMESITE"`

	// TrustProxy reads the client IP from X-Forwarded-For / X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxy bool `mapstructure:"TRUST_PROXY"`

	// RedisURL enables the shared rate limiter (e.g. redis://localhost:6379/0). Empty uses an in-process limiter.
	RedisURL string `mapstructure:"REDIS_URL"`
	// RateLimitPerMinute caps register/login/refresh attempts per client IP.
	RateLimitPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	// NATSURL enables publishing security events to NATS.
	NATSURL string `mapstructure:"NATS_URL"`
	// NATSSubject is the subject security events are published on.
	NATSSubject string `mapstructure:"NATS_SUBJECT"`
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the Kafka topic for security events.
	KafkaTopic string `mapstructure:"KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group used by cmd/worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// OTelEndpoint is the OTLP gRPC collector endpoint. Empty disables export.
	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTelInsecure disables TLS to the collector.
	OTelInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is reported as service.name on traces, metrics and logs.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MIGRATE_ON_START", false)
	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ISSUER", "medconsult-auth")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "7d")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("COOKIE_SAMESITE", "strict")
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 20)
	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT", "auth.events")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "auth-events")
	v.SetDefault("KAFKA_GROUP_ID", "medconsult-auth-events")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "medconsult-auth")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if len(c.JWTAccessSecret) < minSecretLength {
		return fmt.Errorf("config: JWT_ACCESS_SECRET must be at least %d bytes", minSecretLength)
	}
	if len(c.JWTRefreshSecret) < minSecretLength {
		return fmt.Errorf("config: JWT_REFRESH_SECRET must be at least %d bytes", minSecretLength)
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if _, err := ParseTTL(c.JWTAccessTTL); err != nil {
		return fmt.Errorf("config: JWT_ACCESS_TTL: %w", err)
	}
	if _, err := ParseTTL(c.JWTRefreshTTL); err != nil {
		return fmt.Errorf("config: JWT_REFRESH_TTL: %w", err)
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	switch strings.ToLower(c.CookieSameSite) {
	case "", "strict", "lax":
	default:
		return errors.New("config: COOKIE_SAMESITE must be strict or lax")
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("config: RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AccessTTL parses JWTAccessTTL. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := ParseTTL(c.JWTAccessTTL)
	if err != nil {
		return defaultAccessTTL
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL. Returns 7d if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := ParseTTL(c.JWTRefreshTTL)
	if err != nil {
		return defaultRefreshTTL
	}
	return d
}

// ParseTTL parses a Go duration string, additionally accepting a whole-day "d" suffix ("7d").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	var d time.Duration
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else {
		var err error
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, err
		}
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
