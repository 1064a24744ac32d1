package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Secrets  SecretsConfig
	Sync     SyncConfig
	Logger   LoggerConfig
	Cron     CronConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	MetricsPort     int
	GRPCHealthPort  int // grpc.health.v1 listener; 0 disables it
	ShutdownTimeout time.Duration
	RateLimitRPS    float64 // Webhook requests per second per client
	RateLimitBurst  int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// GatewayConfig holds the payment gateway event feed configuration
type GatewayConfig struct {
	BaseURL     string // e.g., https://api.gateway.example.com
	APIKey      string
	Timeout     time.Duration // Whole ListEvents call including retries
	MaxAttempts int
}

// SecretsConfig selects where webhook signing keys are stored
type SecretsConfig struct {
	Backend   string // local, aws, vault
	LocalPath string
	CacheTTL  time.Duration

	AWSRegion   string
	AWSProfile  string
	AWSEndpoint string // LocalStack in development

	VaultAddress    string
	VaultAuthMethod string // token, approle, kubernetes
	VaultToken      string
	VaultRoleID     string
	VaultSecretID   string
	VaultMountPath  string
}

// SyncConfig controls polling of the gateway event feed
type SyncConfig struct {
	Enabled        bool
	Interval       time.Duration // Zero disables the periodic worker; the cron endpoint still works
	PageLimit      int
	MaxPagesPerRun int
	Concurrency    int
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
	File        string // Optional rotating log file
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}

// CronConfig authenticates scheduler calls to the cron endpoints
type CronConfig struct {
	Secret string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			MetricsPort:     getEnvAsInt("METRICS_PORT", 9090),
			GRPCHealthPort:  getEnvAsInt("GRPC_HEALTH_PORT", 9091),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			RateLimitRPS:    getEnvAsFloat("WEBHOOK_RATE_LIMIT_RPS", 50),
			RateLimitBurst:  getEnvAsInt("WEBHOOK_RATE_LIMIT_BURST", 100),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "revenue_share"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Gateway: GatewayConfig{
			BaseURL:     getEnv("GATEWAY_BASE_URL", ""),
			APIKey:      getEnv("GATEWAY_API_KEY", ""),
			Timeout:     getEnvAsDuration("GATEWAY_TIMEOUT", 60*time.Second),
			MaxAttempts: getEnvAsInt("GATEWAY_MAX_ATTEMPTS", 3),
		},
		Secrets: SecretsConfig{
			Backend:         getEnv("SECRETS_BACKEND", "local"),
			LocalPath:       getEnv("SECRETS_LOCAL_PATH", "./secrets"),
			CacheTTL:        getEnvAsDuration("SECRETS_CACHE_TTL", 5*time.Minute),
			AWSRegion:       getEnv("AWS_REGION", ""),
			AWSProfile:      getEnv("AWS_PROFILE", ""),
			AWSEndpoint:     getEnv("AWS_SECRETS_ENDPOINT", ""),
			VaultAddress:    getEnv("VAULT_ADDR", ""),
			VaultAuthMethod: getEnv("VAULT_AUTH_METHOD", "token"),
			VaultToken:      getEnv("VAULT_TOKEN", ""),
			VaultRoleID:     getEnv("VAULT_ROLE_ID", ""),
			VaultSecretID:   getEnv("VAULT_SECRET_ID", ""),
			VaultMountPath:  getEnv("VAULT_MOUNT_PATH", "secret"),
		},
		Sync: SyncConfig{
			Enabled:        getEnvAsBool("SYNC_ENABLED", true),
			Interval:       getEnvAsDuration("SYNC_INTERVAL", 0),
			PageLimit:      getEnvAsInt("SYNC_PAGE_LIMIT", 100),
			MaxPagesPerRun: getEnvAsInt("SYNC_MAX_PAGES_PER_RUN", 50),
			Concurrency:    getEnvAsInt("SYNC_CONCURRENCY", 4),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
			File:        getEnv("LOG_FILE", ""),
			MaxSizeMB:   getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups:  getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays:  getEnvAsInt("LOG_MAX_AGE_DAYS", 28),
		},
		Cron: CronConfig{
			Secret: getEnv("CRON_SECRET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and cross-field constraints
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Cron.Secret == "" {
		return fmt.Errorf("CRON_SECRET is required")
	}

	if c.Sync.Enabled {
		if c.Gateway.BaseURL == "" {
			return fmt.Errorf("GATEWAY_BASE_URL is required when sync is enabled")
		}
		if _, err := url.ParseRequestURI(c.Gateway.BaseURL); err != nil {
			return fmt.Errorf("GATEWAY_BASE_URL is invalid: %w", err)
		}
		if c.Sync.Concurrency < 1 {
			return fmt.Errorf("SYNC_CONCURRENCY must be at least 1")
		}
		if c.Sync.PageLimit < 1 || c.Sync.PageLimit > 1000 {
			return fmt.Errorf("SYNC_PAGE_LIMIT must be between 1 and 1000")
		}
		if c.Sync.Interval < 0 {
			return fmt.Errorf("SYNC_INTERVAL must not be negative")
		}
	}

	switch c.Secrets.Backend {
	case "local":
		if c.Secrets.LocalPath == "" {
			return fmt.Errorf("SECRETS_LOCAL_PATH is required for the local secrets backend")
		}
	case "aws":
		if c.Secrets.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required for the aws secrets backend")
		}
	case "vault":
		if c.Secrets.VaultAddress == "" {
			return fmt.Errorf("VAULT_ADDR is required for the vault secrets backend")
		}
		if c.Secrets.VaultAuthMethod == "token" && c.Secrets.VaultToken == "" {
			return fmt.Errorf("VAULT_TOKEN is required for vault token auth")
		}
		if c.Secrets.VaultAuthMethod == "approle" && (c.Secrets.VaultRoleID == "" || c.Secrets.VaultSecretID == "") {
			return fmt.Errorf("VAULT_ROLE_ID and VAULT_SECRET_ID are required for vault approle auth")
		}
	default:
		return fmt.Errorf("unsupported SECRETS_BACKEND: %s", c.Secrets.Backend)
	}

	return nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as pgxpool and goose accept it
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Helper functions

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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
