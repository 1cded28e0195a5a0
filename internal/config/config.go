package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the application Config loaded from the environment.
var Module = fx.Module("config",
	fx.Provide(Load),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	SnowflakeNode int64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis RedisConfig

	Ledger LedgerConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis endpoint was configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// LedgerConfig controls how the ledger engine commits paired writes.
type LedgerConfig struct {
	// WriteMode is "atomic" (single database transaction) or
	// "compensating" (ordered writes with undo on failure).
	WriteMode string
	// OrphanPolicy is "reject" or "cascade" and applies when a debt that
	// still has transactions is about to be deleted.
	OrphanPolicy  string
	CurrencyScale int32
	// LockTTL bounds how long a Redis debt lock survives a crashed holder.
	// Live holders refresh it, so it does not bound the write unit itself.
	LockTTL time.Duration
	// LockWait is how long a writer waits for a busy debt before ErrDebtBusy.
	LockWait time.Duration
	// AuditInterval is how often the background audit checks the ledger.
	// Zero disables it; LEDGER_AUDIT_INTERVAL=0 sets it.
	AuditInterval time.Duration
	AuditRepair   bool
}

const (
	WriteModeAtomic       = "atomic"
	WriteModeCompensating = "compensating"

	OrphanPolicyReject  = "reject"
	OrphanPolicyCascade = "cascade"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "backoffice"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		SnowflakeNode:     getenvInt64("SNOWFLAKE_NODE", 1),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "backoffice"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		Ledger: LedgerConfig{
			WriteMode:     normalizeWriteMode(getenv("LEDGER_WRITE_MODE", WriteModeAtomic)),
			OrphanPolicy:  normalizeOrphanPolicy(getenv("LEDGER_ORPHAN_POLICY", OrphanPolicyReject)),
			CurrencyScale: int32(getenvInt64("LEDGER_CURRENCY_SCALE", 0)),
			LockTTL:       getenvDuration("LEDGER_LOCK_TTL", 10*time.Second),
			LockWait:      getenvDuration("LEDGER_LOCK_WAIT", 5*time.Second),
			AuditInterval: auditInterval(),
			AuditRepair:   getenvBool("LEDGER_AUDIT_REPAIR", false),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func normalizeWriteMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case WriteModeCompensating:
		return WriteModeCompensating
	default:
		return WriteModeAtomic
	}
}

func normalizeOrphanPolicy(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case OrphanPolicyCascade:
		return OrphanPolicyCascade
	default:
		return OrphanPolicyReject
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func auditInterval() time.Duration {
	if strings.TrimSpace(os.Getenv("LEDGER_AUDIT_INTERVAL")) == "0" {
		return 0
	}
	return getenvDuration("LEDGER_AUDIT_INTERVAL", time.Hour)
}
