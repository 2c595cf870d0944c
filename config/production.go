// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/numbay/numbay/utils"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
	Upstream UpstreamConfig `json:"upstream"`
	Pricing  PricingConfig  `json:"pricing"`
	Sweeper  SweeperConfig  `json:"sweeper"`
	Cache    CacheConfig    `json:"cache"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
	Admin    AdminConfig    `json:"admin"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// UpstreamConfig points at the SMS panel the catalog mirrors
type UpstreamConfig struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	// Enabled gates the panel integration; the hold/ledger engine works
	// standalone when it is off.
	Enabled bool `json:"enabled"`
}

type PricingConfig struct {
	DefaultPriceCents int64 `json:"default_price_cents"`
}

type SweeperConfig struct {
	GracePeriod time.Duration `json:"grace_period"`
	Interval    time.Duration `json:"interval"`
	LogPath     string        `json:"log_path"`
}

type CacheConfig struct {
	Enabled       bool          `json:"enabled"`
	RedisAddr     string        `json:"redis_addr"`
	RedisPassword string        `json:"redis_password"`
	RedisDB       int           `json:"redis_db"`
	CookieKey     string        `json:"cookie_key"`
	CookieTTL     time.Duration `json:"cookie_ttl"`
}

type LoggingConfig struct {
	UpstreamLogPath string `json:"upstream_log_path"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// AdminConfig carries the static bearer token for the operator endpoints
type AdminConfig struct {
	APIToken string `json:"api_token"`
}

// LoadProductionConfig loads configuration from environment variables,
// optionally seeded from a local .env file
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "numbay"),
			User:            getEnvString("DB_USER", "numbay"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL:  getEnvString("UPSTREAM_BASE_URL", ""),
			Username: getEnvString("UPSTREAM_USERNAME", ""),
			Password: getEnvString("UPSTREAM_PASSWORD", ""),
			Enabled:  getEnvBool("UPSTREAM_ENABLED", false),
		},
		Pricing: PricingConfig{
			DefaultPriceCents: int64(getEnvInt("PRICING_DEFAULT_CENTS", int(utils.DefaultPriceCents))),
		},
		Sweeper: SweeperConfig{
			GracePeriod: getEnvDuration("SWEEPER_GRACE_PERIOD", utils.HoldGracePeriod),
			Interval:    getEnvDuration("SWEEPER_INTERVAL", time.Minute),
			LogPath:     getEnvString("SWEEPER_LOG_PATH", "data/sweeper.log"),
		},
		Cache: CacheConfig{
			Enabled:       getEnvBool("CACHE_ENABLED", false),
			RedisAddr:     getEnvString("CACHE_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnvString("CACHE_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("CACHE_REDIS_DB", 0),
			CookieKey:     getEnvString("CACHE_COOKIE_KEY", "numbay:upstream:cookies"),
			CookieTTL:     getEnvDuration("CACHE_COOKIE_TTL", utils.UpstreamCookieTTL),
		},
		Logging: LoggingConfig{
			UpstreamLogPath: getEnvString("LOG_UPSTREAM_PATH", "data/upstream.log"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Admin: AdminConfig{
			APIToken: getEnvString("ADMIN_API_TOKEN", ""),
		},
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN builds the Postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}
	if cfg.Database.Password == "" {
		errors = append(errors, "DB_PASSWORD is required")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	if cfg.Upstream.Enabled {
		if cfg.Upstream.BaseURL == "" {
			errors = append(errors, "UPSTREAM_BASE_URL is required when UPSTREAM_ENABLED is true")
		}
		if cfg.Upstream.Username == "" || cfg.Upstream.Password == "" {
			errors = append(errors, "UPSTREAM_USERNAME and UPSTREAM_PASSWORD are required when UPSTREAM_ENABLED is true")
		}
	}

	if cfg.Pricing.DefaultPriceCents <= 0 {
		errors = append(errors, "PRICING_DEFAULT_CENTS must be positive")
	}
	if cfg.Sweeper.GracePeriod <= 0 {
		errors = append(errors, "SWEEPER_GRACE_PERIOD must be positive")
	}
	if cfg.Sweeper.Interval <= 0 {
		errors = append(errors, "SWEEPER_INTERVAL must be positive")
	}

	if cfg.Admin.APIToken != "" && len(cfg.Admin.APIToken) < 32 {
		errors = append(errors, "ADMIN_API_TOKEN must be at least 32 characters long")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() error {
	envFile := ".env"

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}

	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "=") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
			(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
			value = value[1 : len(value)-1]
		}
		// Real environment always wins over the .env file
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
