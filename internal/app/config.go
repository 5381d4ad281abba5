package app

import (
	"errors"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/loandesk/backoffice/internal/platform/cache"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"loandesk_session"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	ListingURL     string        `envconfig:"LISTING_URL" required:"true"`
	ListingTimeout time.Duration `envconfig:"LISTING_TIMEOUT" default:"15s"`

	LeadsPageSizes          []int         `envconfig:"LEADS_PAGE_SIZES" default:"10,25,50,100"`
	LeadsDefaultPageSize    int           `envconfig:"LEADS_DEFAULT_PAGE_SIZE" default:"10"`
	LeadsCacheTTL           time.Duration `envconfig:"LEADS_CACHE_TTL" default:"30s"`
	LeadsWorkspaceTTL       time.Duration `envconfig:"LEADS_WORKSPACE_TTL" default:"2h"`
	LeadsBaselineSegments   []string      `envconfig:"LEADS_BASELINE_SEGMENTS"`
	LeadsBaselineCategories []string      `envconfig:"LEADS_BASELINE_CATEGORIES"`
	AmountLocale            string        `envconfig:"AMOUNT_LOCALE" default:"en-IN"`
	StatusPathPrefix        string        `envconfig:"STATUS_PATH_PREFIX" default:"/status"`

	WarmupScopes      []string `envconfig:"WARMUP_SCOPES"`
	WarmupCron        string   `envconfig:"WARMUP_CRON" default:"*/10 * * * *"`
	WorkerMetricsAddr string   `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
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
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	if u, err := url.Parse(c.ListingURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("listing url must be an absolute http(s) url")
	}
	if c.LeadsDefaultPageSize <= 0 {
		return errors.New("default page size must be positive")
	}
	for _, size := range c.LeadsPageSizes {
		if size <= 0 {
			return errors.New("page sizes must be positive")
		}
	}
	return nil
}

// Redis returns the shared Redis connection settings.
func (c *Config) Redis() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
