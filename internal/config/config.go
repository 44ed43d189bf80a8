package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type Config struct {
	// Server
	ServerPort string
	AdminToken string
	LogLevel   string

	// Database
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Ledger
	StartingBalance int64
	DailyAmount     int64
	DailyCooldown   time.Duration
}

// Ledger holds the currency rules the services apply.
type Ledger struct {
	StartingBalance int64
	DailyAmount     int64
	DailyCooldown   time.Duration
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		ServerPort:      "8080",
		LogLevel:        "info",
		DBDriver:        DriverSQLite,
		DBPath:          "warp_stones.db",
		DBHost:          "localhost",
		DBPort:          "5432",
		DBUser:          "postgres",
		DBPassword:      "postgres",
		DBName:          "warp_stones",
		DBSSLMode:       "disable",
		StartingBalance: 1000,
		DailyAmount:     150,
		DailyCooldown:   24 * time.Hour,
	}
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	def := Default()
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", def.ServerPort),
		AdminToken: getEnv("ADMIN_TOKEN", ""),
		LogLevel:   getEnv("LOG_LEVEL", def.LogLevel),

		DBDriver:   getEnv("DB_DRIVER", def.DBDriver),
		DBPath:     getEnv("DB_PATH", def.DBPath),
		DBHost:     getEnv("DB_HOST", def.DBHost),
		DBPort:     getEnv("DB_PORT", def.DBPort),
		DBUser:     getEnv("DB_USER", def.DBUser),
		DBPassword: getEnv("DB_PASSWORD", def.DBPassword),
		DBName:     getEnv("DB_NAME", def.DBName),
		DBSSLMode:  getEnv("DB_SSLMODE", def.DBSSLMode),
	}

	var err error
	if cfg.StartingBalance, err = getEnvInt("LEDGER_STARTING_BALANCE", def.StartingBalance); err != nil {
		return nil, err
	}
	if cfg.DailyAmount, err = getEnvInt("LEDGER_DAILY_AMOUNT", def.DailyAmount); err != nil {
		return nil, err
	}
	if cfg.DailyCooldown, err = getEnvDuration("LEDGER_DAILY_COOLDOWN", def.DailyCooldown); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.StartingBalance < 0 {
		return fmt.Errorf("LEDGER_STARTING_BALANCE must not be negative, got %d", c.StartingBalance)
	}
	if c.DailyAmount <= 0 {
		return fmt.Errorf("LEDGER_DAILY_AMOUNT must be positive, got %d", c.DailyAmount)
	}
	if c.DailyCooldown <= 0 {
		return fmt.Errorf("LEDGER_DAILY_COOLDOWN must be positive, got %s", c.DailyCooldown)
	}
	return nil
}

// GetDBConnectionString renders the DSN for the configured driver.
// SQLite connections begin every transaction with BEGIN IMMEDIATE so writers serialize on the file lock.
func (c *Config) GetDBConnectionString() string {
	if c.DBDriver == DriverPostgres {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
	}
	return "file:" + c.DBPath + "?_txlock=immediate&_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

func (c *Config) Ledger() Ledger {
	return Ledger{
		StartingBalance: c.StartingBalance,
		DailyAmount:     c.DailyAmount,
		DailyCooldown:   c.DailyCooldown,
	}
}

// SlogLevel parses LOG_LEVEL, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
