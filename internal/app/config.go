package app

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	BackendURL        string        `envconfig:"BACKEND_URL" required:"true"`
	BackendToken      string        `envconfig:"BACKEND_TOKEN"`
	BackendTimeout    time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`
	BackendRetryCount int           `envconfig:"BACKEND_RETRY_COUNT" default:"1"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	ReportCacheTTL     time.Duration `envconfig:"REPORT_CACHE_TTL" default:"5m"`
	ReportConcurrency  int           `envconfig:"REPORT_CONCURRENCY" default:"4"`
	ReportWarmupCron   string        `envconfig:"REPORT_WARMUP_CRON" default:"0 6 * * *"`
	ValidationDebounce time.Duration `envconfig:"VALIDATION_DEBOUNCE" default:"500ms"`

	LiveAllowedOrigins []string `envconfig:"LIVE_ALLOWED_ORIGINS"`

	WorkerAddr        string `envconfig:"WORKER_ADDR" default:":8081"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"2"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("backend url must be an absolute http(s) url")
	}
	if c.ValidationDebounce <= 0 {
		return errors.New("validation debounce must be positive")
	}
	if c.ReportCacheTTL < 0 {
		return errors.New("report cache ttl must not be negative")
	}
	origins := c.LiveAllowedOrigins[:0]
	for _, o := range c.LiveAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.LiveAllowedOrigins = origins
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// CacheEnabled reports whether report slices are cached in Redis.
func (c *Config) CacheEnabled() bool {
	return c != nil && c.RedisAddr != "" && c.ReportCacheTTL > 0
}
