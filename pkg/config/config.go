package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the screener. Load is the only
// place environment variables are read.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	Database DatabaseConfig
	Redis    RedisConfig
	Sources  SourcesConfig
	Refresh  RefreshConfig
	Telegram TelegramConfig

	// Query layer
	IndicatorsConfigPath string

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

// RedisConfig holds the optional Redis configuration. When disabled,
// the query cache and distributed rate limiter degrade to no-ops.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// SourcesConfig holds external data provider configuration.
type SourcesConfig struct {
	// NASDAQ charting API (daily OHLCV).
	NasdaqBaseURL string
	// SEC EDGAR XBRL API (company facts).
	EdgarBaseURL string
	// SEC requires a descriptive User-Agent with contact information.
	EdgarUserAgent string
	// Requests per second allowed against EDGAR (SEC fair-use cap is 10).
	EdgarRateLimit float64
	NasdaqRateLimit float64
	// Backfill window for symbols with no stored history.
	BackfillDays int
	// Optional local constituents CSV, used when the scrape fails.
	SP500CSVPath string
}

// RefreshConfig tunes the refresh orchestrator and combined screen.
type RefreshConfig struct {
	Concurrency       int
	PriceTTL          time.Duration
	FundamentalsTTL   time.Duration
	OversoldThreshold float64 // Williams %R below this is oversold
	MinQualityScore   int     // minimum passed formulas (0..10)
	TechnicalWeight   float64
	FundamentalWeight float64
	TopN              int
	// Cron expression for the scheduler command.
	Schedule string
}

// TelegramConfig holds the optional post-refresh report notifier.
type TelegramConfig struct {
	Enabled  bool
	BotToken string
	ChatID   string
}

// Load reads configuration from environment variables, trying .env
// files in the usual locations first.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
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

		Sources: SourcesConfig{
			NasdaqBaseURL:   getEnv("NASDAQ_BASE_URL", "https://charting.nasdaq.com"),
			EdgarBaseURL:    getEnv("EDGAR_BASE_URL", "https://data.sec.gov/api/xbrl"),
			EdgarUserAgent:  getEnv("EDGAR_USER_AGENT", "OversoldScreener/1.0 (ops@openquant.dev)"),
			EdgarRateLimit:  getEnvAsFloat("EDGAR_RATE_LIMIT", 8),
			NasdaqRateLimit: getEnvAsFloat("NASDAQ_RATE_LIMIT", 5),
			BackfillDays:    getEnvAsInt("BACKFILL_DAYS", 730),
			SP500CSVPath:    getEnv("SP500_CSV_PATH", "config/sp500_companies.csv"),
		},

		Refresh: RefreshConfig{
			Concurrency:       getEnvAsInt("REFRESH_CONCURRENCY", 10),
			PriceTTL:          getEnvAsDuration("PRICE_TTL", "24h"),
			FundamentalsTTL:   getEnvAsDuration("FUNDAMENTALS_TTL", "168h"),
			OversoldThreshold: getEnvAsFloat("OVERSOLD_THRESHOLD", -80),
			MinQualityScore:   getEnvAsInt("MIN_QUALITY_SCORE", 5),
			TechnicalWeight:   getEnvAsFloat("TECHNICAL_WEIGHT", 0.3),
			FundamentalWeight: getEnvAsFloat("FUNDAMENTAL_WEIGHT", 0.7),
			TopN:              getEnvAsInt("SCREEN_TOP_N", 10),
			Schedule:          getEnv("REFRESH_SCHEDULE", "0 0 22 * * 1-5"),
		},

		Telegram: TelegramConfig{
			Enabled:  getEnvAsBool("TELEGRAM_ENABLED", false),
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		},

		IndicatorsConfigPath: getEnv("INDICATORS_CONFIG", "config/indicators.yaml"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Refresh.Concurrency < 1 {
		return fmt.Errorf("REFRESH_CONCURRENCY must be at least 1")
	}

	sum := c.Refresh.TechnicalWeight + c.Refresh.FundamentalWeight
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.2f", sum)
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required when TELEGRAM_ENABLED")
	}

	return nil
}

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
