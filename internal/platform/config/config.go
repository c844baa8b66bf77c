// Package config builds runtime configuration from environment variables so
// main stays lean. Defaults are development-friendly; production deployments
// override via env.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the full runtime configuration for the engine.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	QuickPay QuickPay
	Escrow   Escrow
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Postgres holds the durable store connection. Empty URL means the engine
// runs on in-memory stores (tests, local development).
type Postgres struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// Redis holds the velocity/idempotency store connection. Empty URL disables
// Redis-backed components and the engine falls back to in-memory windows.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka holds the audit relay target. Empty brokers disables the relay;
// audit events still land in the outbox/store.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// QuickPay tunes the expedited disbursement pipeline.
type QuickPay struct {
	// FeeRate is the processing fee as a fraction of the requested amount.
	FeeRate decimal.Decimal
	// MinPerformanceScore is the verification threshold for the
	// performance-score check.
	MinPerformanceScore float64
	// ReviewSLA bounds how long a requires-review request may sit before the
	// sweep flags it for operator escalation. There is no upstream policy for
	// this hold; the SLA is deliberately configuration, and the sweep only
	// escalates, never auto-decides.
	ReviewSLA time.Duration
	// SweepInterval is how often background sweeps run.
	SweepInterval time.Duration
	// SettlementTarget is the promised time-to-settle; approval stamps
	// EstimatedArrival = approval time + target.
	SettlementTarget time.Duration
}

// Escrow tunes account lifecycle defaults.
type Escrow struct {
	// FundingDeadline applies when funding terms carry no explicit deadline.
	FundingDeadline time.Duration
	// FeeRate is the fraction of each milestone release accrued to the fee
	// balance. Zero by default; deployments that charge on release set it.
	FeeRate decimal.Decimal
	// CertificateSigningKey signs payment certificate proofs (HS256).
	CertificateSigningKey string
}

// FromEnv builds the configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("KEYSTONE_ADDR", ":8080"),
			ShutdownTimeout: envDuration("KEYSTONE_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			URL:          os.Getenv("KEYSTONE_POSTGRES_URL"),
			MaxOpenConns: envInt("KEYSTONE_POSTGRES_MAX_OPEN", 25),
			MaxIdleConns: envInt("KEYSTONE_POSTGRES_MAX_IDLE", 5),
		},
		Redis: Redis{
			URL:          os.Getenv("KEYSTONE_REDIS_URL"),
			PoolSize:     envInt("KEYSTONE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("KEYSTONE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("KEYSTONE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("KEYSTONE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("KEYSTONE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:    envList("KEYSTONE_KAFKA_BROKERS"),
			AuditTopic: envString("KEYSTONE_AUDIT_TOPIC", "keystone.audit"),
		},
		QuickPay: QuickPay{
			FeeRate:             envDecimal("KEYSTONE_QUICKPAY_FEE_RATE", "0.025"),
			MinPerformanceScore: envFloat("KEYSTONE_QUICKPAY_MIN_PERFORMANCE", 70),
			ReviewSLA:           envDuration("KEYSTONE_QUICKPAY_REVIEW_SLA", 72*time.Hour),
			SweepInterval:       envDuration("KEYSTONE_QUICKPAY_SWEEP_INTERVAL", 15*time.Minute),
			SettlementTarget:    envDuration("KEYSTONE_QUICKPAY_SETTLEMENT_TARGET", 24*time.Hour),
		},
		Escrow: Escrow{
			FundingDeadline: envDuration("KEYSTONE_FUNDING_DEADLINE", 30*24*time.Hour),
			FeeRate:         envDecimal("KEYSTONE_ESCROW_FEE_RATE", "0"),
			// Development default; override in production.
			CertificateSigningKey: envString("KEYSTONE_CERT_SIGNING_KEY", "dev-cert-signing-key"),
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

func envDecimal(key, fallback string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(fallback)
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
