package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Redis configuration
	Redis RedisConfig `mapstructure:"redis"`

	// Object storage configuration (medical test uploads)
	Storage StorageConfig `mapstructure:"storage"`

	// AI model endpoint configuration
	Model ModelConfig `mapstructure:"model"`

	// Outbound mail configuration
	Mail MailConfig `mapstructure:"mail"`

	// JWT configuration
	JWT JWTConfig `mapstructure:"jwt"`

	// Auth admin API configuration (optional password-update path)
	Auth AuthConfig `mapstructure:"auth"`

	// Retention cleanup configuration
	Retention RetentionConfig `mapstructure:"retention"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Bucket     string `mapstructure:"bucket"`
	ServiceKey string `mapstructure:"service_key"`
	MaxListing int    `mapstructure:"max_listing"`
}

// ModelConfig holds the multimodal AI endpoint configuration
type ModelConfig struct {
	Endpoint        string  `mapstructure:"endpoint"`
	APIKey          string  `mapstructure:"api_key"`
	Temperature     float64 `mapstructure:"temperature"`
	TopK            int     `mapstructure:"top_k"`
	TopP            float64 `mapstructure:"top_p"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
}

// MailConfig holds outbound mail API configuration
type MailConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	From     string `mapstructure:"from"`
	SiteURL  string `mapstructure:"site_url"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	AccessTokenTTL int    `mapstructure:"access_token_ttl"`
	Issuer         string `mapstructure:"issuer"`
}

// AuthConfig holds the optional auth admin API used for privileged
// password updates. When the endpoint is empty the admin strategy is
// skipped.
type AuthConfig struct {
	AdminEndpoint   string `mapstructure:"admin_endpoint"`
	AdminKey        string `mapstructure:"admin_key"`
	ResetRateLimit  int    `mapstructure:"reset_rate_limit"`
	ResetRateWindow int    `mapstructure:"reset_rate_window"`
}

// RetentionConfig holds retention cleanup configuration
type RetentionConfig struct {
	MaxAgeDays      int `mapstructure:"max_age_days"`
	IntervalHours   int `mapstructure:"interval_hours"`
	InitialDelayMin int `mapstructure:"initial_delay_min"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/sahti")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideWithEnv(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "sahti")
	viper.SetDefault("database.user", "sahti")
	viper.SetDefault("database.ssl_mode", "require")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	// Storage defaults
	viper.SetDefault("storage.bucket", "medical-images")
	viper.SetDefault("storage.max_listing", 1000)

	// Model defaults mirror the generation settings used by the web client
	viper.SetDefault("model.temperature", 0.3)
	viper.SetDefault("model.top_k", 32)
	viper.SetDefault("model.top_p", 1.0)
	viper.SetDefault("model.max_output_tokens", 2048)
	viper.SetDefault("model.timeout_seconds", 60)

	// JWT defaults
	viper.SetDefault("jwt.access_token_ttl", 3600)
	viper.SetDefault("jwt.issuer", "sahti-patient-portal")

	// Auth defaults: 5 reset requests per hour per address
	viper.SetDefault("auth.reset_rate_limit", 5)
	viper.SetDefault("auth.reset_rate_window", 3600)

	// Retention defaults: files older than 5 days, swept every 6 hours
	viper.SetDefault("retention.max_age_days", 5)
	viper.SetDefault("retention.interval_hours", 6)
	viper.SetDefault("retention.initial_delay_min", 10)

	// Logging defaults
	viper.SetDefault("log_level", "info")
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if jwtSecret := os.Getenv("JWT_SECRET_KEY"); jwtSecret != "" {
		config.JWT.SecretKey = jwtSecret
	}

	if apiKey := os.Getenv("MODEL_API_KEY"); apiKey != "" {
		config.Model.APIKey = apiKey
	}

	if serviceKey := os.Getenv("STORAGE_SERVICE_KEY"); serviceKey != "" {
		config.Storage.ServiceKey = serviceKey
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.JWT.SecretKey == "" {
		return fmt.Errorf("JWT secret key is required")
	}

	if config.Database.Password == "" {
		return fmt.Errorf("database password is required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Retention.MaxAgeDays <= 0 {
		return fmt.Errorf("invalid retention max age: %d", config.Retention.MaxAgeDays)
	}

	return nil
}
