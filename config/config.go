package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Payout    PayoutConfig
	Gateway   GatewayConfig
	RateLimit RateLimitConfig
	Firebase  FirebaseConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional; when Addr is empty the service falls back to the
// in-memory rate limiter.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

type PayoutConfig struct {
	MinAmountCents int64
	FlatFeeCents   int64
	FeeBps         int64 // basis points of the requested amount
	// MaxTransitionAttempts bounds the CAS retry loop on version conflicts.
	MaxTransitionAttempts int
	// ProcessingSLA is how long a payout may sit in PROCESSING before the
	// monitor polls the gateway and flags it for manual reconciliation.
	ProcessingSLA   time.Duration
	MonitorInterval time.Duration
}

// GatewayConfig for the Paylio transfer API.
type GatewayConfig struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	WebhookSecret  string
	WebhookBaseURL string // e.g. https://pay.example.com - callback will be WebhookBaseURL + /api/v1/webhooks/transfers
	RequestTimeout time.Duration
	UseStub        bool // development mode: accept every transfer locally
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

// Load reads .env if present, then environment variables with defaults.
func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8090"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", "refpay:refpay@tcp(localhost:3306)/refpay?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
			Expiry: getEnvAsDuration("JWT_EXPIRY", 15*time.Minute),
			Issuer: getEnv("JWT_ISSUER", "refpay"),
		},
		Payout: PayoutConfig{
			MinAmountCents:        getEnvAsInt64("PAYOUT_MIN_AMOUNT_CENTS", 1000),
			FlatFeeCents:          getEnvAsInt64("PAYOUT_FLAT_FEE_CENTS", 50),
			FeeBps:                getEnvAsInt64("PAYOUT_FEE_BPS", 100),
			MaxTransitionAttempts: getEnvAsInt("PAYOUT_MAX_TRANSITION_ATTEMPTS", 3),
			ProcessingSLA:         getEnvAsDuration("PAYOUT_PROCESSING_SLA", 30*time.Minute),
			MonitorInterval:       getEnvAsDuration("PAYOUT_MONITOR_INTERVAL", 5*time.Minute),
		},
		Gateway: GatewayConfig{
			BaseURL:        getEnv("GATEWAY_BASE_URL", "https://api.paylio.io"),
			ClientID:       getEnv("GATEWAY_CLIENT_ID", ""),
			ClientSecret:   getEnv("GATEWAY_CLIENT_SECRET", ""),
			WebhookSecret:  getEnv("GATEWAY_WEBHOOK_SECRET", ""),
			WebhookBaseURL: getEnv("GATEWAY_WEBHOOK_BASE_URL", ""),
			RequestTimeout: getEnvAsDuration("GATEWAY_REQUEST_TIMEOUT", 30*time.Second),
			UseStub:        getEnvAsBool("GATEWAY_USE_STUB", false),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
