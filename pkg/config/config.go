package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	xutil "ForecastDash/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout" validate:"required"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Prediction struct {
		BaseURL string        `yaml:"base_url" default:"http://localhost:5000/api" validate:"required,url"`
		Timeout time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	} `yaml:"prediction"`
	Dashboard struct {
		Title string `yaml:"title" default:"GRU Stock Price Prediction System"`
		// RefreshCron re-runs the forecast for the selected symbol. Empty disables it.
		RefreshCron string `yaml:"refresh_cron"`
		RateLimit   struct {
			Capacity     float64       `yaml:"capacity" default:"5" validate:"gte=1"`
			RefillPerSec float64       `yaml:"refill_per_sec" default:"1" validate:"gt=0"`
			IdleTTL      time.Duration `yaml:"idle_ttl" default:"10m"`
		} `yaml:"rate_limit"`
		PingInterval time.Duration `yaml:"ws_ping_interval" default:"30s" validate:"gt=0"`
	} `yaml:"dashboard"`
	Cache struct {
		Backend       string        `yaml:"backend" default:"memory" validate:"oneof=none memory redis"`
		CatalogTTL    time.Duration `yaml:"catalog_ttl" default:"5m"`
		ForecastTTL   time.Duration `yaml:"forecast_ttl"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"256" validate:"gte=1"`
		Redis         struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"forecastdash"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Events struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers" validate:"required_if=Enabled true"`
		Topic        string        `yaml:"topic" default:"forecastdash.events"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		RequiredAcks int           `yaml:"required_acks" default:"1"`
		Async        bool          `yaml:"async" default:"true"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		ErrorLogs    struct {
			Enabled   bool          `yaml:"enabled"`
			Topic     string        `yaml:"topic" default:"forecastdash.logs"`
			Interval  time.Duration `yaml:"interval" default:"30s" validate:"gt=0"`
			Threshold int           `yaml:"threshold" default:"100" validate:"gte=1"`
		} `yaml:"error_logs"`
	} `yaml:"events"`
}

// Load builds a Config from struct defaults and, when path is non-empty, a YAML file.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config and overrides it with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PREDICTION_BASE_URL"); v != "" {
		c.Prediction.BaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		c.Server.Port = xutil.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port := xutil.SplitHostPort(v, c.Cache.Redis.Port)
		c.Cache.Redis.Host = host
		c.Cache.Redis.Port = port
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Events.Brokers = xutil.SplitList(v)
	}

	// env may have broken what the file got right
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed on '%s'", fe.Namespace(), fe.Tag())
		}
		return err
	}
	if c.Events.ErrorLogs.Enabled && !c.Events.Enabled {
		return fmt.Errorf("events.error_logs requires events.enabled")
	}
	return nil
}
