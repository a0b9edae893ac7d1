// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// ProviderConfig carries the environment-fallback key and an optional base
// URL override (used against sandboxes and in tests) for one provider.
type ProviderConfig struct {
	Key     string `yaml:"key"`
	BaseURL string `yaml:"base_url"`
}

type ProvidersConfig struct {
	Runway    ProviderConfig `yaml:"runway"`
	Luma      ProviderConfig `yaml:"luma"`
	Kling     ProviderConfig `yaml:"kling"`
	Replicate ProviderConfig `yaml:"replicate"`
	Google    ProviderConfig `yaml:"google"`
	OpenAI    ProviderConfig `yaml:"openai"`
}

type PollerConfig struct {
	SuccessInterval time.Duration `yaml:"success_interval"`
	FailureInterval time.Duration `yaml:"failure_interval"`
	MaxAttempts     int           `yaml:"max_attempts"`
	CheckTimeout    time.Duration `yaml:"check_timeout"`
}

type ReaperConfig struct {
	Interval time.Duration `yaml:"interval"`
	MaxAge   time.Duration `yaml:"max_age"`
}

type RateLimitConfig struct {
	SubmitsPerMinute int `yaml:"submits_per_minute"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
	AdminSecret   string `yaml:"admin_secret"`   // HMAC secret for admin JWTs
	AdminPassword string `yaml:"admin_password"` // login for minting admin JWTs
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Providers ProvidersConfig `yaml:"providers"`
	Poller    PollerConfig    `yaml:"poller"`
	Reaper    ReaperConfig    `yaml:"reaper"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Security  SecurityConfig  `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 24 * time.Hour
	}
	if cfg.Poller.SuccessInterval <= 0 {
		cfg.Poller.SuccessInterval = 3 * time.Second
	}
	if cfg.Poller.FailureInterval <= 0 {
		cfg.Poller.FailureInterval = 5 * time.Second
	}
	if cfg.Poller.MaxAttempts <= 0 {
		cfg.Poller.MaxAttempts = 60
	}
	if cfg.Poller.CheckTimeout <= 0 {
		cfg.Poller.CheckTimeout = 30 * time.Second
	}
	if cfg.Reaper.Interval <= 0 {
		cfg.Reaper.Interval = 10 * time.Minute
	}
	if cfg.Reaper.MaxAge <= 0 {
		cfg.Reaper.MaxAge = 2 * time.Hour
	}
	if cfg.RateLimit.SubmitsPerMinute <= 0 {
		cfg.RateLimit.SubmitsPerMinute = 10
	}

	// env overrides for secrets so keys can stay out of the YAML file
	overlayEnv(&cfg)

	// minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func overlayEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Database.URL, "DATABASE_URL")
	set(&cfg.Redis.URL, "REDIS_URL")
	set(&cfg.Providers.Runway.Key, "RUNWAY_API_KEY")
	set(&cfg.Providers.Luma.Key, "LUMA_API_KEY")
	set(&cfg.Providers.Kling.Key, "KLING_API_KEY")
	set(&cfg.Providers.Replicate.Key, "REPLICATE_API_TOKEN")
	set(&cfg.Providers.Google.Key, "GOOGLE_API_KEY")
	set(&cfg.Providers.OpenAI.Key, "OPENAI_API_KEY")
	set(&cfg.Security.EncryptionKey, "ENCRYPTION_KEY")
	set(&cfg.Security.AdminSecret, "ADMIN_JWT_SECRET")
	set(&cfg.Security.AdminPassword, "ADMIN_PASSWORD")
}
