package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the resolved settings for one run. It is built once by Load and
// must not be modified afterwards.
type Config struct {
	LogLevel string
	LogFile  string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBName      string
	DBUser      string
	DBPassword  string

	APIBaseURL     string
	APIKey         string
	RequestTimeout time.Duration

	BatchSize         int
	SleepBetweenCalls time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	DryRun            bool
	// ProductID limits the run to one record when non-zero.
	ProductID   int64
	CheckHealth bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	// CacheEnabled turns on the image URL result cache; off, every record gets its own API request.
	CacheEnabled bool
	CacheTTL     time.Duration

	MetricsAddr string
}

var defaults = map[string]any{
	"log_level":           "info",
	"log_file":            "",
	"db_url":              "",
	"db_host":             "localhost",
	"db_port":             "5432",
	"db_name":             "products",
	"db_user":             "postgres",
	"db_password":         "",
	"api_base_url":        "http://localhost:3000/api",
	"api_key":             "",
	"request_timeout":     30 * time.Second,
	"batch_size":          10,
	"sleep_between_calls": 1.0,
	"max_retries":         3,
	"retry_delay":         2.0,
	"dry_run":             false,
	"product_id":          int64(0),
	"check_health":        false,
	"redis_addr":          "",
	"redis_password":      "",
	"redis_db":            0,
	"cache_enabled":       false,
	"cache_ttl":           24 * time.Hour,
	"lock_ttl":            time.Hour,
	"metrics_addr":        "",
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"log-level":      "log_level",
	"log-file":       "log_file",
	"db-url":         "db_url",
	"db-server":      "db_host",
	"db-port":        "db_port",
	"db-name":        "db_name",
	"db-user":        "db_user",
	"db-password":    "db_password",
	"api-url":        "api_base_url",
	"api-key":        "api_key",
	"timeout":        "request_timeout",
	"batch-size":     "batch_size",
	"sleep":          "sleep_between_calls",
	"max-retries":    "max_retries",
	"retry-delay":    "retry_delay",
	"dry-run":        "dry_run",
	"product-id":     "product_id",
	"check-health":   "check_health",
	"redis-addr":     "redis_addr",
	"redis-password": "redis_password",
	"redis-db":       "redis_db",
	"cache":          "cache_enabled",
	"cache-ttl":      "cache_ttl",
	"lock-ttl":       "lock_ttl",
	"metrics-addr":   "metrics_addr",
}

// BindFlags registers every run flag on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-file", "", "Also write JSON logs to this file")
	fs.String("db-url", "", "Full PostgreSQL connection URL (overrides the db-* parts)")
	fs.String("db-server", "localhost", "PostgreSQL hostname or IP")
	fs.String("db-port", "5432", "PostgreSQL port")
	fs.String("db-name", "products", "Database name")
	fs.String("db-user", "postgres", "Database username")
	fs.String("db-password", "", "Database password")
	fs.String("api-url", "http://localhost:3000/api", "Base URL for the Product Image API")
	fs.String("api-key", "", "API key sent as a bearer token")
	fs.Duration("timeout", 30*time.Second, "Timeout for a single API call")
	fs.Int("batch-size", 10, "Number of products to process in each batch")
	fs.Float64("sleep", 1.0, "Seconds to sleep between API calls")
	fs.Int("max-retries", 3, "Retries allowed after the first API attempt")
	fs.Float64("retry-delay", 2.0, "Seconds to wait before retrying a failed API call")
	fs.Bool("dry-run", false, "Run without making updates to the database")
	fs.Int64("product-id", 0, "Process only a specific product ID")
	fs.Bool("check-health", false, "Probe the API health endpoint before the first batch")
	fs.String("redis-addr", "", "Redis address for the result cache and run lock (disabled when empty)")
	fs.String("redis-password", "", "Redis password")
	fs.Int("redis-db", 0, "Redis database number")
	fs.Bool("cache", false, "Reuse image URLs for products with identical attributes and codes")
	fs.Duration("cache-ttl", 24*time.Hour, "How long generated image URLs stay cached")
	fs.Duration("lock-ttl", time.Hour, "Expiry of the run lock")
	fs.String("metrics-addr", "", "Serve /metrics on this address while running (disabled when empty)")
}

// Load merges defaults, environment variables and explicitly set flags, in
// increasing order of precedence. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			flag := fs.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	cfg := &Config{
		LogLevel:          strings.ToLower(v.GetString("log_level")),
		LogFile:           v.GetString("log_file"),
		DatabaseURL:       v.GetString("db_url"),
		DBHost:            v.GetString("db_host"),
		DBPort:            v.GetString("db_port"),
		DBName:            v.GetString("db_name"),
		DBUser:            v.GetString("db_user"),
		DBPassword:        v.GetString("db_password"),
		APIBaseURL:        v.GetString("api_base_url"),
		APIKey:            v.GetString("api_key"),
		RequestTimeout:    v.GetDuration("request_timeout"),
		BatchSize:         v.GetInt("batch_size"),
		SleepBetweenCalls: seconds(v.GetFloat64("sleep_between_calls")),
		MaxRetries:        v.GetInt("max_retries"),
		RetryDelay:        seconds(v.GetFloat64("retry_delay")),
		DryRun:            v.GetBool("dry_run"),
		ProductID:         v.GetInt64("product_id"),
		CheckHealth:       v.GetBool("check_health"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisPassword:     v.GetString("redis_password"),
		RedisDB:           v.GetInt("redis_db"),
		CacheEnabled:      v.GetBool("cache_enabled"),
		CacheTTL:          v.GetDuration("cache_ttl"),
		LockTTL:           v.GetDuration("lock_ttl"),
		MetricsAddr:       v.GetString("metrics_addr"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the updater cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.SleepBetweenCalls < 0 {
		errs = append(errs, errors.New("sleep between calls must not be negative"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay must not be negative"))
	}
	if c.ProductID < 0 {
		errs = append(errs, fmt.Errorf("product id must be positive, got %d", c.ProductID))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if _, err := url.ParseRequestURI(c.APIBaseURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid API base URL %q: %w", c.APIBaseURL, err))
	}
	return errors.Join(errs...)
}

// DatabaseDSN returns DatabaseURL when set, otherwise a postgres URL built from the parts.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SingleRecord reports whether the run is limited to one product.
func (c *Config) SingleRecord() bool {
	return c.ProductID > 0
}

// LogValue keeps secrets out of the logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("db_host", c.DBHost),
		slog.String("db_name", c.DBName),
		slog.Bool("db_url_set", c.DatabaseURL != ""),
		slog.String("api_base_url", c.APIBaseURL),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Int("batch_size", c.BatchSize),
		slog.Duration("sleep_between_calls", c.SleepBetweenCalls),
		slog.Int("max_retries", c.MaxRetries),
		slog.Duration("retry_delay", c.RetryDelay),
		slog.Duration("request_timeout", c.RequestTimeout),
		slog.Bool("dry_run", c.DryRun),
		slog.Int64("product_id", c.ProductID),
		slog.String("redis_addr", c.RedisAddr),
		slog.Bool("cache_enabled", c.CacheEnabled),
		slog.String("metrics_addr", c.MetricsAddr),
	)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
