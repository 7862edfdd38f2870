package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jschmidtnj/ewaab-sub000/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration
	Redis RedisConfig `yaml:"redis"`

	// Auth configuration
	Auth AuthConfig `yaml:"auth"`

	// Bootstrap configuration
	Bootstrap BootstrapConfig `yaml:"bootstrap"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds SQL database configuration
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite3" (dev mode)
	Driver string `yaml:"driver"`
	// URL is a postgres connection string, or a file path for sqlite3
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis configuration for the token version store
type RedisConfig struct {
	// Enabled selects Redis over the SQL store for token versions
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig holds token signing and lifetime configuration
type AuthConfig struct {
	Issuer string `yaml:"issuer"`
	// Secret is the HMAC signing secret. Prefer SecretFile in production.
	Secret string `yaml:"secret"`
	// SecretFile points at a file holding the signing secret; changes to the
	// file are picked up without a restart.
	SecretFile string `yaml:"secret_file"`

	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
	MediaTTL   time.Duration `yaml:"media_ttl"`
	ActionTTL  time.Duration `yaml:"action_ttl"`

	// VisitorSweepSchedule is a cron expression for expired visitor code cleanup
	VisitorSweepSchedule string `yaml:"visitor_sweep_schedule"`
}

// BootstrapConfig holds the pseudo-admin credentials used while the account
// store is empty
type BootstrapConfig struct {
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel `yaml:"-"`
	// LogLevelName is the string form used in YAML files
	LogLevelName string `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// LoadConfig loads configuration from an optional YAML file and environment
// variables. Environment variables override file values. An empty path skips
// the file entirely.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if cfg.Observability.LogLevelName != "" {
			cfg.Observability.LogLevel = parseLogLevel(cfg.Observability.LogLevelName)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			HealthPort:      "9090",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Auth: AuthConfig{
			Issuer:               "ewaab",
			AccessTTL:            2 * time.Hour,
			RefreshTTL:           7 * 24 * time.Hour,
			MediaTTL:             time.Hour,
			ActionTTL:            24 * time.Hour,
			VisitorSweepSchedule: "@hourly",
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			MetricsEnabled:     true,
			OTelEnabled:        false,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "ewaab-auth",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// applyEnv overlays environment variables on top of the loaded configuration
func applyEnv(cfg *Config) {
	// Server config
	cfg.Server.Host = getEnv("EWAAB_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("EWAAB_PORT", cfg.Server.Port)
	cfg.Server.HealthPort = getEnv("EWAAB_HEALTH_PORT", cfg.Server.HealthPort)
	cfg.Server.ReadTimeout = getEnvDuration("EWAAB_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("EWAAB_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("EWAAB_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("EWAAB_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	// Database config
	cfg.Database.Driver = getEnv("EWAAB_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.URL = getEnv("EWAAB_DB_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = getEnvInt("EWAAB_DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("EWAAB_DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	// Redis config
	cfg.Redis.Enabled = getEnvBool("EWAAB_REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Addr = getEnv("EWAAB_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("EWAAB_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("EWAAB_REDIS_DB", cfg.Redis.DB)

	// Auth config
	cfg.Auth.Issuer = getEnv("EWAAB_TOKEN_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.Secret = getEnv("EWAAB_TOKEN_SECRET", cfg.Auth.Secret)
	cfg.Auth.SecretFile = getEnv("EWAAB_TOKEN_SECRET_FILE", cfg.Auth.SecretFile)
	cfg.Auth.AccessTTL = getEnvDuration("EWAAB_ACCESS_TTL", cfg.Auth.AccessTTL)
	cfg.Auth.RefreshTTL = getEnvDuration("EWAAB_REFRESH_TTL", cfg.Auth.RefreshTTL)
	cfg.Auth.MediaTTL = getEnvDuration("EWAAB_MEDIA_TTL", cfg.Auth.MediaTTL)
	cfg.Auth.ActionTTL = getEnvDuration("EWAAB_ACTION_TTL", cfg.Auth.ActionTTL)
	cfg.Auth.VisitorSweepSchedule = getEnv("EWAAB_VISITOR_SWEEP_SCHEDULE", cfg.Auth.VisitorSweepSchedule)

	// Bootstrap config
	cfg.Bootstrap.AdminEmail = getEnv("EWAAB_BOOTSTRAP_EMAIL", cfg.Bootstrap.AdminEmail)
	cfg.Bootstrap.AdminPassword = getEnv("EWAAB_BOOTSTRAP_PASSWORD", cfg.Bootstrap.AdminPassword)

	// Observability config
	if level := getEnv("EWAAB_LOG_LEVEL", ""); level != "" {
		cfg.Observability.LogLevel = parseLogLevel(level)
	}
	cfg.Observability.MetricsEnabled = getEnvBool("EWAAB_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
	cfg.Observability.OTelEnabled = getEnvBool("EWAAB_OTEL_ENABLED", cfg.Observability.OTelEnabled)
	cfg.Observability.OTelEndpoint = getEnv("EWAAB_OTEL_ENDPOINT", cfg.Observability.OTelEndpoint)
	cfg.Observability.OTelServiceName = getEnv("EWAAB_OTEL_SERVICE_NAME", cfg.Observability.OTelServiceName)
	cfg.Observability.OTelServiceVersion = getEnv("EWAAB_OTEL_SERVICE_VERSION", cfg.Observability.OTelServiceVersion)
	cfg.Observability.OTelInsecure = getEnvBool("EWAAB_OTEL_INSECURE", cfg.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate database config
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	// Validate auth config
	if c.Auth.Secret == "" && c.Auth.SecretFile == "" {
		return fmt.Errorf("token secret or secret file is required")
	}
	if c.Auth.Issuer == "" {
		return fmt.Errorf("token issuer is required")
	}
	if c.Auth.AccessTTL <= 0 {
		return fmt.Errorf("access token TTL must be positive")
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		return fmt.Errorf("refresh token TTL must exceed access token TTL")
	}

	// Validate Redis config
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
