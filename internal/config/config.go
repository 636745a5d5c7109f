package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Overlap policies for concurrent loads into the same store slot.
const (
	PolicyLatestDispatch = "latest_dispatch"
	PolicyLastResolved   = "last_resolved"
)

type Config struct {
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console | json
	} `yaml:"log"`

	Backend struct {
		BaseURL        string  `yaml:"base_url"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		RatePerSecond  float64 `yaml:"rate_per_second"`
		Burst          int     `yaml:"burst"`
	} `yaml:"backend"`

	Payment struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		Currency       string `yaml:"currency"`
		MerchantName   string `yaml:"merchant_name"`
		ThemeColor     string `yaml:"theme_color"`
	} `yaml:"payment"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Storage struct {
		Driver string       `yaml:"driver"` // sqlite | memory
		Path   string       `yaml:"path"`
		Backup BackupConfig `yaml:"backup"`
	} `yaml:"storage"`

	Stores struct {
		OverlapPolicy string `yaml:"overlap_policy"`
	} `yaml:"stores"`

	Checkout struct {
		AllowZeroNights    bool  `yaml:"allow_zero_nights"`
		IdempotencyKeys    *bool `yaml:"idempotency_keys"`
		IdleTimeoutMinutes int   `yaml:"idle_timeout_minutes"`
	} `yaml:"checkout"`

	Events struct {
		AMQPURL string `yaml:"amqp_url"`
		Queue   string `yaml:"queue"`
	} `yaml:"events"`

	Facade struct {
		Address string `yaml:"address"`
	} `yaml:"facade"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

// BackupConfig schedules copies of the sqlite session file.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	IntervalHours int    `yaml:"interval_hours"`
	RetentionDays int    `yaml:"retention_days"`
}

func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}

// Load reads the YAML config at path. A .env file next to the working
// directory is loaded first so ${VAR} placeholders can reference it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if path == "" {
		path = "configs/storefront.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes config bytes, expanding ${ENV_VAR} placeholders, and applies defaults.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	switch cfg.Stores.OverlapPolicy {
	case PolicyLatestDispatch, PolicyLastResolved:
	default:
		return nil, fmt.Errorf("unknown stores.overlap_policy %q", cfg.Stores.OverlapPolicy)
	}

	if cfg.Storage.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:8080/api"
	}
	if c.Payment.BaseURL == "" {
		c.Payment.BaseURL = "http://localhost:8082/api/payments"
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "INR"
	}
	if c.Payment.MerchantName == "" {
		c.Payment.MerchantName = "StayEase Hotels"
	}
	if c.Payment.ThemeColor == "" {
		c.Payment.ThemeColor = "#3399cc"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/storefront.db"
	}
	if c.Storage.Backup.Dir == "" {
		c.Storage.Backup.Dir = "data/backups"
	}
	if c.Stores.OverlapPolicy == "" {
		c.Stores.OverlapPolicy = PolicyLatestDispatch
	}
	if c.Events.Queue == "" {
		c.Events.Queue = "booking.confirmed"
	}
	if c.Facade.Address == "" {
		c.Facade.Address = ":8088"
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}

func (c *Config) BackendTimeout() time.Duration {
	if c.Backend.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

func (c *Config) PaymentTimeout() time.Duration {
	if c.Payment.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Payment.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) CheckoutIdleTimeout() time.Duration {
	if c.Checkout.IdleTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Checkout.IdleTimeoutMinutes) * time.Minute
}

// UseIdempotencyKeys defaults to true when unset.
func (c *Config) UseIdempotencyKeys() bool {
	if c.Checkout.IdempotencyKeys == nil {
		return true
	}
	return *c.Checkout.IdempotencyKeys
}

// LastResolvedWins reports whether stores use last-write-wins instead of latest dispatch.
func (c *Config) LastResolvedWins() bool {
	return c.Stores.OverlapPolicy == PolicyLastResolved
}
