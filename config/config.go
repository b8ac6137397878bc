package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"bus-ticketing/models"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Pricing table, price per ticket type in the base currency.
	// Explicit configuration rather than a hidden constant so tests can
	// substitute pricing.
	Pricing  map[models.TicketType]decimal.Decimal
	Currency string

	// Payment provider configuration
	Provider        string // "simulated" or "gateway"
	GatewayBaseURL  string
	GatewayAPIKey   string
	GatewayHMACKey  string
	ProviderTimeout time.Duration

	// Sweep configuration
	ExpirySweepInterval time.Duration
	RefundSweepInterval time.Duration

	// Validation endpoint protection
	ValidationRateLimit int // requests per minute per device
	TicketLockTTL       time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// Pricing
		Pricing: map[models.TicketType]decimal.Decimal{
			models.TicketSingle:    getEnvAsDecimal("PRICE_SINGLE", "2.50"),
			models.TicketReturn:    getEnvAsDecimal("PRICE_RETURN", "4.50"),
			models.TicketDayPass:   getEnvAsDecimal("PRICE_DAY_PASS", "10.00"),
			models.TicketMultiRide: getEnvAsDecimal("PRICE_MULTI_RIDE", "20.00"),
		},
		Currency: getEnv("CURRENCY", "USD"),

		// Provider
		Provider:        getEnv("PAYMENT_PROVIDER", "simulated"),
		GatewayBaseURL:  getEnv("GATEWAY_BASE_URL", ""),
		GatewayAPIKey:   getEnv("GATEWAY_API_KEY", ""),
		GatewayHMACKey:  getEnv("GATEWAY_HMAC_KEY", ""),
		ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", "10s"),

		// Sweeps
		ExpirySweepInterval: getEnvAsDuration("EXPIRY_SWEEP_INTERVAL", "5m"),
		RefundSweepInterval: getEnvAsDuration("REFUND_SWEEP_INTERVAL", "10m"),

		// Validation
		ValidationRateLimit: getEnvAsInt("VALIDATION_RATE_LIMIT", 120),
		TicketLockTTL:       getEnvAsDuration("TICKET_LOCK_TTL", "5s"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsDecimal(key string, defaultValue string) decimal.Decimal {
	valueStr := getEnv(key, defaultValue)
	if value, err := decimal.NewFromString(valueStr); err == nil {
		return value
	}
	value, _ := decimal.NewFromString(defaultValue)
	return value
}
