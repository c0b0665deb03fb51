package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
		AllowOrigins    []string      `yaml:"allow_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
		Digest struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100" validate:"gte=1"`
			Topic     string        `yaml:"topic" default:"tradedesk.log-digest"`
		} `yaml:"digest"`
	} `yaml:"log"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		Path          string        `yaml:"path" default:"/metrics"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"2s"`
	} `yaml:"metrics"`
	Backend struct {
		BaseURL           string        `yaml:"base_url" validate:"required,url"`
		Timeout           time.Duration `yaml:"timeout" default:"30s"`
		ManualTriggerPath string        `yaml:"manual_trigger_path" default:"/api/manual-trigger"`
	} `yaml:"backend"`
	State struct {
		Backend string `yaml:"backend" default:"memory" validate:"oneof=memory redis layered"`
		Prefix  string `yaml:"prefix" default:"tradedesk"`
		Redis   struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"state"`
	Sync struct {
		StaleCheck bool `yaml:"stale_check" default:"true"`
	} `yaml:"sync"`
	Notify struct {
		FeedSize int `yaml:"feed_size" default:"100" validate:"gte=1"`
	} `yaml:"notify"`
	Audit struct {
		Enabled     bool     `yaml:"enabled"`
		Brokers     []string `yaml:"brokers"`
		Topic       string   `yaml:"topic" default:"tradedesk.ticker-changes"`
		Compression string   `yaml:"compression" default:"gzip"`
		BufferSize  int      `yaml:"buffer_size" default:"256"`
	} `yaml:"audit"`
	RateLimit struct {
		LoginCapacity float64 `yaml:"login_capacity" default:"5"`
		LoginRefill   float64 `yaml:"login_refill_per_sec" default:"0.2"`
	} `yaml:"ratelimit"`
}

var validate = validator.New()

// Default returns a config populated from struct defaults only.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TRADEDESK_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("TRADEDESK_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("TRADEDESK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TRADEDESK_REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.State.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.State.Redis.Port = p
			}
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Audit.Brokers = strings.Split(v, ",")
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if !strings.HasPrefix(c.Backend.ManualTriggerPath, "/") && !strings.HasPrefix(c.Backend.ManualTriggerPath, "http") {
		return fmt.Errorf("backend.manual_trigger_path must be absolute path or URL, got '%s'", c.Backend.ManualTriggerPath)
	}
	if c.Audit.Enabled && len(c.Audit.Brokers) == 0 {
		return fmt.Errorf("audit.brokers cannot be empty when audit is enabled")
	}
	if c.Log.Digest.Enabled && len(c.Audit.Brokers) == 0 {
		return fmt.Errorf("audit.brokers cannot be empty when log.digest is enabled")
	}
	if c.RateLimit.LoginCapacity < 1 {
		return fmt.Errorf("ratelimit.login_capacity must be at least 1")
	}
	return nil
}
