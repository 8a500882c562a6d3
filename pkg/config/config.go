package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional, run history is disabled when URL is empty)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data provider
	Provider ProviderConfig

	// Scan pipeline
	Scan ScanConfig

	// Valuation model knobs
	Valuation ValuationConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring (/metrics on the API port)
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ProviderConfig holds market-data and listings source configuration
type ProviderConfig struct {
	QuoteBaseURL   string // quoteSummary / options / chart
	ListingsUA     string // User-Agent for listings pages
	Timeout        time.Duration
	RatePerSecond  int
	MaxRetries     int
	RetryDelay     time.Duration
	BreakerTimeout time.Duration // open → half-open
	BreakerTrips   int           // consecutive failures before opening
}

// ScanConfig holds orchestrator and scanner defaults
type ScanConfig struct {
	MaxParallel       int
	ItemTimeout       time.Duration
	OptionExpirations int
	OptionTickers     int // batch option scan covers the first N ids
	RiskFreeRate      float64
	DefaultVolatility float64
	UniverseCacheTTL  time.Duration
	MultiplesFile     string // empty = built-in sector table
	EarningsWindow    time.Duration
}

// ValuationConfig holds valuation model switches
type ValuationConfig struct {
	ClampLeverage bool // clamp the leverage factor at zero
}

// SchedulerConfig holds cron specs
type SchedulerConfig struct {
	UniverseWarmSpec string
	NightlyScanSpec  string
	NightlyUniverse  string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Provider: ProviderConfig{
			QuoteBaseURL:   getEnv("PROVIDER_BASE_URL", "https://query2.finance.yahoo.com"),
			ListingsUA:     getEnv("LISTINGS_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
			Timeout:        getEnvAsDuration("PROVIDER_TIMEOUT", "15s"),
			RatePerSecond:  getEnvAsInt("PROVIDER_RATE_PER_SECOND", 5),
			MaxRetries:     getEnvAsInt("PROVIDER_MAX_RETRIES", 2),
			RetryDelay:     getEnvAsDuration("PROVIDER_RETRY_DELAY", "500ms"),
			BreakerTimeout: getEnvAsDuration("PROVIDER_BREAKER_TIMEOUT", "60s"),
			BreakerTrips:   getEnvAsInt("PROVIDER_BREAKER_TRIPS", 5),
		},

		Scan: ScanConfig{
			MaxParallel:       getEnvAsInt("SCAN_MAX_PARALLEL", 8),
			ItemTimeout:       getEnvAsDuration("SCAN_ITEM_TIMEOUT", "20s"),
			OptionExpirations: getEnvAsInt("SCAN_OPTION_EXPIRATIONS", 3),
			OptionTickers:     getEnvAsInt("SCAN_OPTION_TICKERS", 50),
			RiskFreeRate:      getEnvAsFloat("SCAN_RISK_FREE_RATE", 0.04),
			DefaultVolatility: getEnvAsFloat("SCAN_DEFAULT_VOLATILITY", 0.2),
			UniverseCacheTTL:  getEnvAsDuration("UNIVERSE_CACHE_TTL", "24h"),
			MultiplesFile:     getEnv("MULTIPLES_FILE", ""),
			EarningsWindow:    getEnvAsDuration("EARNINGS_WINDOW", "720h"),
		},

		Valuation: ValuationConfig{
			ClampLeverage: getEnvAsBool("VALUATION_CLAMP_LEVERAGE", false),
		},

		Scheduler: SchedulerConfig{
			UniverseWarmSpec: getEnv("SCHEDULE_UNIVERSE_WARM", "0 0 5 * * *"),
			NightlyScanSpec:  getEnv("SCHEDULE_NIGHTLY_SCAN", "0 30 21 * * 1-5"),
			NightlyUniverse:  getEnv("SCHEDULE_NIGHTLY_UNIVERSE", "sp500"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile loads an explicit .env file first, then reads the environment.
// Variables already set in the environment win over the file.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return Load()
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Scan.MaxParallel < 1 {
		return fmt.Errorf("SCAN_MAX_PARALLEL must be >= 1, got %d", c.Scan.MaxParallel)
	}
	if c.Scan.ItemTimeout <= 0 {
		return fmt.Errorf("SCAN_ITEM_TIMEOUT must be positive")
	}
	if c.Scan.DefaultVolatility <= 0 {
		return fmt.Errorf("SCAN_DEFAULT_VOLATILITY must be positive")
	}
	if c.Provider.RatePerSecond < 1 {
		return fmt.Errorf("PROVIDER_RATE_PER_SECOND must be >= 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
