// Package config loads the application configuration with viper: defaults,
// an optional YAML file, then WALLETD_-prefixed environment variables, each
// layer overriding the last.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Holds     HoldsConfig     `mapstructure:"holds"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Log       LogConfig       `mapstructure:"log"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

func (c *AppConfig) IsDevelopment() bool { return c.Environment == "development" }
func (c *AppConfig) IsProduction() bool  { return c.Environment == "production" }

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DSN renders the PostgreSQL connection URL, used by the migrator.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// NATSConfig points at the event bus. An empty URL disables publishing.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig points at the shared rate-limit store. An empty address keeps
// rate limiting process-local.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// LimitsConfig are the spend limits applied to new keys that don't specify
// their own.
type LimitsConfig struct {
	DefaultPerTxMax string `mapstructure:"default_per_tx_max"`
	DefaultDailyMax string `mapstructure:"default_daily_max"`
}

// HoldsConfig tunes the expired-hold sweeper.
type HoldsConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TracingConfig enables OTLP trace export.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional YAML file and the environment.
func Load(configPath, configName string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/walletd")

	v.SetEnvPrefix("WALLETD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv reads configuration from defaults and environment only.
func LoadFromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WALLETD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "walletd")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "walletd")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("nats.url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.requests_per_minute", 100)

	v.SetDefault("limits.default_per_tx_max", "10000.00")
	v.SetDefault("limits.default_daily_max", "100000.00")

	v.SetDefault("holds.sweep_interval", "30s")

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.host", "WALLETD_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "WALLETD_DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "WALLETD_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "WALLETD_DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.database", "WALLETD_DATABASE_DATABASE", "DB_NAME")
	_ = v.BindEnv("server.port", "WALLETD_SERVER_PORT", "PORT")
	_ = v.BindEnv("nats.url", "WALLETD_NATS_URL", "NATS_URL")
	_ = v.BindEnv("redis.addr", "WALLETD_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("app.environment", "WALLETD_APP_ENVIRONMENT", "ENVIRONMENT", "ENV")
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must be positive")
	}
	if c.Holds.SweepInterval <= 0 {
		return fmt.Errorf("holds.sweep_interval must be positive")
	}
	return nil
}

// Development returns a ready-to-use local configuration.
func Development() *Config {
	return &Config{
		App: AppConfig{
			Name:        "walletd",
			Version:     "dev",
			Environment: "development",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "postgres",
			Database:        "walletd",
			SSLMode:         "disable",
			MaxConnections:  10,
			MinConnections:  2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
		RateLimit: RateLimitConfig{RequestsPerMinute: 100},
		Limits: LimitsConfig{
			DefaultPerTxMax: "10000.00",
			DefaultDailyMax: "100000.00",
		},
		Holds: HoldsConfig{SweepInterval: 30 * time.Second},
		CORS:  CORSConfig{AllowedOrigins: []string{"*"}},
		Log:   LogConfig{Level: "debug", Format: "text"},
	}
}

// Test returns the configuration used by the test suites.
func Test() *Config {
	cfg := Development()
	cfg.App.Environment = "test"
	cfg.Database.Database = "walletd_test"
	cfg.Log.Level = "error"
	return cfg
}
