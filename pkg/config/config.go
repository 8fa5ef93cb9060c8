package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional; holdings endpoints are disabled without it)
	Database DatabaseConfig

	// Redis (optional shared cache tier)
	Redis RedisConfig

	// Market data access layer
	MarketData MarketDataConfig

	// Incremental scanner
	Scan ScanConfig

	// Alerts
	Alerts AlertsConfig

	// External API keys (empty means the fallback provider is used)
	FMPKey     string
	NewsAPIKey string

	// Paths
	CacheDir     string
	UniverseDir  string
	StrategyPath string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// MarketDataConfig tunes throttling, retries and cache freshness for the
// external market-data source.
type MarketDataConfig struct {
	RequestsPerSec float64
	MaxRetries     int
	BaseSleep      time.Duration
	PriceTTL       time.Duration
	FactsTTL       time.Duration
	FXTTL          time.Duration
}

// ScanConfig tunes the scan queue and the scoring loop.
type ScanConfig struct {
	MaxTickers  int           // queue/universe cap
	SleepMs     int           // pause between instruments inside one screen
	StepDelay   time.Duration // pause after each queue step
	Background  bool          // run the background sweeper
	UniverseTTL time.Duration // on-disk universe cache freshness
	Universes   []string      // default universe names for the queue
}

// AlertsConfig holds notification delivery settings.
type AlertsConfig struct {
	WebhookURL    string
	MinScore      float64
	SendRiskFlags bool
	SMTPHost      string
	SMTPPort      string
	SMTPUser      string
	SMTPPass      string
	EmailTo       string
}

// Load reads configuration from environment variables.
// Only this function calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8099"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		MarketData: MarketDataConfig{
			RequestsPerSec: getEnvAsFloat("MD_REQS_PER_SEC", 5),
			MaxRetries:     getEnvAsInt("MD_MAX_RETRIES", 4),
			BaseSleep:      getEnvAsDuration("MD_BASE_SLEEP", "1.5s"),
			PriceTTL:       getEnvAsDuration("MD_TTL_PRICE", "15m"),
			FactsTTL:       getEnvAsDuration("MD_TTL_FACTS", "60m"),
			FXTTL:          getEnvAsDuration("MD_TTL_FX", "10m"),
		},

		Scan: ScanConfig{
			MaxTickers:  getEnvAsInt("SCAN_MAX_TICKERS", 120),
			SleepMs:     getEnvAsInt("SCAN_SLEEP_MS", 220),
			StepDelay:   getEnvAsDuration("SCAN_STEP_DELAY", "2s"),
			Background:  getEnvAsBool("SCAN_BG", false),
			UniverseTTL: getEnvAsDuration("UNIVERSE_TTL", "24h"),
			Universes:   getEnvAsList("SCAN_UNIVERSES", "auto:sp500,auto:asx200"),
		},

		Alerts: AlertsConfig{
			WebhookURL:    getEnv("WEBHOOK_URL", ""),
			MinScore:      getEnvAsFloat("ALERT_MIN_SCORE", 1.5),
			SendRiskFlags: getEnvAsBool("ALERT_SEND_RISK_FLAGS", true),
			SMTPHost:      getEnv("SMTP_HOST", ""),
			SMTPPort:      getEnv("SMTP_PORT", "587"),
			SMTPUser:      getEnv("SMTP_USER", ""),
			SMTPPass:      getEnv("SMTP_PASS", ""),
			EmailTo:       getEnv("ALERT_EMAIL_TO", ""),
		},

		FMPKey:     getEnv("FMP_KEY", ""),
		NewsAPIKey: getEnv("NEWSAPI_KEY", ""),

		CacheDir:     getEnv("CACHE_DIR", ".cache"),
		UniverseDir:  getEnv("UNIVERSE_DIR", "data/universe"),
		StrategyPath: getEnv("STRATEGY_PATH", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.MarketData.RequestsPerSec <= 0 {
		return fmt.Errorf("MD_REQS_PER_SEC must be positive")
	}

	if c.Scan.MaxTickers <= 0 {
		return fmt.Errorf("SCAN_MAX_TICKERS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

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
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string, defaultValue string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
