package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel    string `toml:"log_level"`
	LogsPath    string `toml:"logs_path"`
	LogToStdout bool   `toml:"log_to_stdout"`

	SentryEnabled  bool `toml:"sentry_enabled"`
	TracingEnabled bool `toml:"tracing_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresUser   string `toml:"postgres_user"`
	PostgresDBName string `toml:"postgres_db_name"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// prometheus metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// auth
	LoginRateLimitAllowedPerMin int    `toml:"login_rate_limit_allowed_per_min"`
	LoginCodeDigits             int    `toml:"login_code_digits"`
	LoginCodeTTLMinutes         int    `toml:"login_code_ttl_minutes"`
	SMTPHost                    string `toml:"smtp_host"`
	SMTPPort                    string `toml:"smtp_port"`
	SMTPFrom                    string `toml:"smtp_from"`

	// stats
	StatsCacheSizeMegabytes int `toml:"stats_cache_size_megabytes"`
	StatsCacheTTLSeconds    int `toml:"stats_cache_ttl_seconds"`

	CorsAllowedOrigins []string `toml:"cors_allowed_origins"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	var configToml Toml
	if _, err := toml.DecodeFile(path, &configToml); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	cfg, err := configToml.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env %s empty", env)
	}

	cfg.Environment = env
	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.PostgresUser == "" {
		cfg.PostgresUser = "postgres"
	}
	if cfg.LoginCodeDigits == 0 {
		cfg.LoginCodeDigits = 6
	}
	if cfg.LoginCodeTTLMinutes == 0 {
		cfg.LoginCodeTTLMinutes = 10
	}
	if cfg.LoginRateLimitAllowedPerMin == 0 {
		cfg.LoginRateLimitAllowedPerMin = 5
	}
	if cfg.StatsCacheSizeMegabytes == 0 {
		cfg.StatsCacheSizeMegabytes = 10
	}
	if cfg.StatsCacheTTLSeconds == 0 {
		cfg.StatsCacheTTLSeconds = 30
	}
	if len(cfg.CorsAllowedOrigins) == 0 {
		cfg.CorsAllowedOrigins = []string{
			"http://localhost:8080",
			"https://app.pacelog.net",
		}
	}
}
