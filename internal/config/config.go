package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/north-relay/pkg/sender"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	ServiceName    string `mapstructure:"service_name"`
	PublishersFile string `mapstructure:"publishers_file"`

	EndpointAddress       string `mapstructure:"endpoint_address"`
	EndpointScheme        string `mapstructure:"endpoint_scheme"`
	ConnectTimeoutSeconds int64  `mapstructure:"connect_timeout"`
	RequestTimeoutSeconds int64  `mapstructure:"request_timeout"`
	RetryIntervalSeconds  int64  `mapstructure:"retry_interval"`
	MaxAttempts           int    `mapstructure:"max_attempts"`
	AuthMode              string `mapstructure:"auth_mode"`
	BasicCredentials      string `mapstructure:"basic_credentials"`

	HeartbeatIntervalSeconds int64         `mapstructure:"heartbeat_interval"`
	HeartbeatInterval        time.Duration `mapstructure:"-"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`

	Endpoint sender.Config `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "north-relay")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("service_name", "north-relay")
	v.SetDefault("publishers_file", "")
	v.SetDefault("endpoint_address", "")
	v.SetDefault("endpoint_scheme", "http")
	v.SetDefault("connect_timeout", 10) // seconds
	v.SetDefault("request_timeout", 30) // seconds
	v.SetDefault("retry_interval", 1)   // seconds
	v.SetDefault("max_attempts", 3)
	v.SetDefault("auth_mode", "none")
	v.SetDefault("basic_credentials", "")
	v.SetDefault("heartbeat_interval", 60) // seconds
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/assets.db")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finalize validates raw values and derives durations and the endpoint config.
func (cfg *Config) finalize() error {
	cfg.EndpointAddress = strings.TrimSpace(cfg.EndpointAddress)
	if cfg.EndpointAddress == "" {
		return fmt.Errorf("endpoint_address is required (host:port)")
	}
	if cfg.ConnectTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid connect_timeout (must be positive seconds)")
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid request_timeout (must be positive seconds)")
	}
	if cfg.RetryIntervalSeconds < 0 {
		return fmt.Errorf("invalid retry_interval (must not be negative)")
	}
	if cfg.HeartbeatIntervalSeconds <= 0 {
		return fmt.Errorf("invalid heartbeat_interval (must be positive seconds)")
	}
	cfg.HeartbeatInterval = time.Duration(cfg.HeartbeatIntervalSeconds) * time.Second

	mode, err := sender.ParseAuthMode(cfg.AuthMode)
	if err != nil {
		return fmt.Errorf("invalid auth_mode: %w", err)
	}

	cfg.Endpoint = sender.Config{
		Address:          cfg.EndpointAddress,
		Scheme:           cfg.EndpointScheme,
		ConnectTimeout:   time.Duration(cfg.ConnectTimeoutSeconds) * time.Second,
		RequestTimeout:   time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		RetryInterval:    time.Duration(cfg.RetryIntervalSeconds) * time.Second,
		MaxAttempts:      cfg.MaxAttempts,
		AuthMode:         mode,
		BasicCredentials: strings.TrimSpace(cfg.BasicCredentials),
	}
	if err := cfg.Endpoint.Validate(); err != nil {
		return fmt.Errorf("invalid endpoint config: %w", err)
	}
	return nil
}

// Redacted returns a copy safe to log.
func (cfg Config) Redacted() Config {
	if cfg.BasicCredentials != "" {
		cfg.BasicCredentials = "***"
		cfg.Endpoint.BasicCredentials = "***"
	}
	return cfg
}
