package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort         string `mapstructure:"SERVER_PORT"`
	LogLevel           string `mapstructure:"LOG_LEVEL"`
	BackendURL         string `mapstructure:"BACKEND_URL"`
	SessionCookie      string `mapstructure:"SESSION_COOKIE"`
	PageFile           string `mapstructure:"PAGE_FILE"`
	PollIntervalMS     int    `mapstructure:"POLL_INTERVAL_MS"`
	PollMaxAttempts    int    `mapstructure:"POLL_MAX_ATTEMPTS"`
	QueryTimeout       int    `mapstructure:"QUERY_TIMEOUT"`
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int    `mapstructure:"REDIS_DB"`
	PostgresURL        string `mapstructure:"POSTGRES_URL"`
	PreviewEnabled     bool   `mapstructure:"PREVIEW_ENABLED"`
	PreviewTimeout     int    `mapstructure:"PREVIEW_TIMEOUT"`
	NotificationBuffer int    `mapstructure:"NOTIFICATION_BUFFER"`
	PrefersDark        bool   `mapstructure:"THEME_PREFERS_DARK"`
	CORSOrigins        string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// A missing .env file is fine, production configures through the environment.
	_ = v.ReadInConfig()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BACKEND_URL", "http://localhost:5000")
	v.SetDefault("SESSION_COOKIE", "")
	v.SetDefault("PAGE_FILE", "")
	v.SetDefault("POLL_INTERVAL_MS", 3000)
	v.SetDefault("POLL_MAX_ATTEMPTS", 60)
	v.SetDefault("QUERY_TIMEOUT", 10) // in seconds
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("PREVIEW_ENABLED", false)
	v.SetDefault("PREVIEW_TIMEOUT", 15) // in seconds
	v.SetDefault("NOTIFICATION_BUFFER", 50)
	v.SetDefault("THEME_PREFERS_DARK", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:*,http://127.0.0.1:*")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return errors.New("SERVER_PORT is required")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid BACKEND_URL %q", c.BackendURL)
	}
	if c.PollIntervalMS <= 0 {
		return errors.New("POLL_INTERVAL_MS must be positive")
	}
	if c.PollMaxAttempts <= 0 {
		return errors.New("POLL_MAX_ATTEMPTS must be positive")
	}
	if c.QueryTimeout <= 0 {
		return errors.New("QUERY_TIMEOUT must be positive")
	}
	if c.NotificationBuffer <= 0 {
		return errors.New("NOTIFICATION_BUFFER must be positive")
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c *Config) QueryTimeoutDuration() time.Duration {
	return time.Duration(c.QueryTimeout) * time.Second
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) PreviewTimeoutDuration() time.Duration {
	return time.Duration(c.PreviewTimeout) * time.Second
}
