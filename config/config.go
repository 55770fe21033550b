// Package config loads application configuration from the environment and an
// optional YAML file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DriverPostgres selects the pgx connection pool backend.
	DriverPostgres = "postgres"
	// DriverSQLite selects the GORM + SQLite backend.
	DriverSQLite = "sqlite"

	// EnvProduction turns on TLS for database connections.
	EnvProduction = "production"

	defaultConfigName = "config"
	defaultConfigType = "yaml"
)

// Validation errors.
var (
	ErrUnknownDriver    = errors.New("unknown database driver")
	ErrInvalidPort      = errors.New("database port out of range")
	ErrInvalidPool      = errors.New("invalid connection pool settings")
	ErrInvalidRateLimit = errors.New("invalid rate limit settings")
)

// Config is the full application configuration.
type Config struct {
	Environment     string          `mapstructure:"environment"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	HTTP            HTTPConfig      `mapstructure:"http"`
	Database        DatabaseConfig  `mapstructure:"database"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	Log             LogConfig       `mapstructure:"log"`
}

// HTTPConfig configures the fiber server.
type HTTPConfig struct {
	Addr               string        `mapstructure:"addr"`
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig configures the todo store.
type DatabaseConfig struct {
	Driver         string        `mapstructure:"driver"`
	URL            string        `mapstructure:"url"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Name           string        `mapstructure:"name"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	MaxConns       int32         `mapstructure:"max_conns"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	SQLitePath     string        `mapstructure:"sqlite_path"`
	Debug          bool          `mapstructure:"debug"`

	// Environment is copied from Config.Environment by Load.
	Environment string `mapstructure:"-"`
}

// RateLimitConfig configures the optional Redis-backed limiter.
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	Requests      int           `mapstructure:"requests"`
	Window        time.Duration `mapstructure:"window"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// envBindings maps config keys to the environment variables that set them.
// The first variable found wins.
var envBindings = map[string][]string{
	"environment":               {"APP_ENV", "NODE_ENV"},
	"shutdown_timeout":          {"SHUTDOWN_TIMEOUT"},
	"http.addr":                 {"HTTP_ADDR"},
	"http.cors_allowed_origins": {"CORS_ALLOWED_ORIGINS"},
	"http.read_timeout":         {"HTTP_READ_TIMEOUT"},
	"http.write_timeout":        {"HTTP_WRITE_TIMEOUT"},
	"http.idle_timeout":         {"HTTP_IDLE_TIMEOUT"},
	"database.driver":           {"DB_DRIVER"},
	"database.url":              {"DATABASE_URL"},
	"database.host":             {"POSTGRES_HOST"},
	"database.port":             {"POSTGRES_PORT"},
	"database.name":             {"POSTGRES_DB"},
	"database.user":             {"POSTGRES_USER"},
	"database.password":         {"POSTGRES_PASSWORD"},
	"database.max_conns":        {"DB_MAX_CONNS"},
	"database.idle_timeout":     {"DB_IDLE_TIMEOUT"},
	"database.acquire_timeout":  {"DB_ACQUIRE_TIMEOUT"},
	"database.sqlite_path":      {"SQLITE_PATH"},
	"database.debug":            {"DB_DEBUG"},
	"rate_limit.enabled":        {"RATE_LIMIT_ENABLED"},
	"rate_limit.redis_addr":     {"REDIS_ADDR"},
	"rate_limit.redis_password": {"REDIS_PASSWORD"},
	"rate_limit.requests":       {"RATE_LIMIT_REQUESTS"},
	"rate_limit.window":         {"RATE_LIMIT_WINDOW"},
	"log.level":                 {"LOG_LEVEL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("shutdown_timeout", 30*time.Second)

	v.SetDefault("http.addr", ":3000")
	v.SetDefault("http.cors_allowed_origins", "http://localhost:3000,http://localhost:8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "todos")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.idle_timeout", 30*time.Second)
	v.SetDefault("database.acquire_timeout", 2*time.Second)
	v.SetDefault("database.sqlite_path", "todos.db")
	v.SetDefault("database.debug", false)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.redis_addr", "localhost:6379")
	v.SetDefault("rate_limit.redis_password", "")
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("log.level", "info")
}

// Load builds the configuration. When path is empty, config.yaml in the
// working directory is read if present; a missing file is not an error.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType(defaultConfigType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Database.Environment = cfg.Environment

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Database.Driver)
	}

	if c.Database.Driver == DriverPostgres && c.Database.URL == "" {
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("%w: %d", ErrInvalidPort, c.Database.Port)
		}
	}

	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("%w: max_conns must be positive", ErrInvalidPool)
	}
	if c.Database.AcquireTimeout <= 0 {
		return fmt.Errorf("%w: acquire_timeout must be positive", ErrInvalidPool)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
			return fmt.Errorf("%w: requests and window must be positive", ErrInvalidRateLimit)
		}
	}
	return nil
}

// SSLRequired reports whether database connections must use TLS.
func (d DatabaseConfig) SSLRequired() bool {
	return d.Environment == EnvProduction
}
