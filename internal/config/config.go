package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr    string `mapstructure:"http_addr"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	DefaultTenant    string `mapstructure:"default_tenant"`
	TenantClaim      string `mapstructure:"tenant_claim"`
	PermissionsClaim string `mapstructure:"permissions_claim"`
	GroupsClaim      string `mapstructure:"groups_claim"`
	AuthzEngine      string `mapstructure:"authz_engine"`

	DBMaxConns               int `mapstructure:"db_max_conns"`
	DBMinConns               int `mapstructure:"db_min_conns"`
	DBConnMaxLifetimeSeconds int `mapstructure:"db_conn_max_lifetime_seconds"`
	DBConnectTimeoutSeconds  int `mapstructure:"db_connect_timeout_seconds"`

	RateLimitRequests       int  `mapstructure:"rate_limit_requests"`
	RateLimitWindowSeconds  int  `mapstructure:"rate_limit_window_seconds"`
	RateLimitIncludeSubject bool `mapstructure:"rate_limit_include_subject"`
	RateLimitFailClosed     bool `mapstructure:"rate_limit_fail_closed"`
	RateLimitMaxKeys        int  `mapstructure:"rate_limit_max_keys"`

	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`

	TraceExporter    string  `mapstructure:"trace_exporter"`
	TraceSampleRatio float64 `mapstructure:"trace_sample_ratio"`
	TraceServiceName string  `mapstructure:"trace_service_name"`
}

const (
	AuthzEngineNative = "native"
	AuthzEngineOPA    = "opa"

	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)

// FromEnv reads the configuration from the environment only and falls back to
// defaults for anything that does not parse.
func FromEnv() Config {
	cfg, err := Load("")
	if err != nil {
		v := viper.New()
		setDefaults(v)
		cfg = Config{}
		_ = v.Unmarshal(&cfg)
	}
	return cfg
}

// Load reads an optional YAML file and overlays environment variables on top.
func Load(path string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.AuthzEngine = strings.ToLower(strings.TrimSpace(cfg.AuthzEngine))
	cfg.DefaultTenant = strings.ToLower(strings.TrimSpace(cfg.DefaultTenant))
	cfg.TraceExporter = strings.ToLower(strings.TrimSpace(cfg.TraceExporter))
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("default_tenant", "public")
	v.SetDefault("tenant_claim", "organization")
	v.SetDefault("permissions_claim", "autorisation")
	v.SetDefault("groups_claim", "group_permissions")
	v.SetDefault("authz_engine", AuthzEngineNative)
	v.SetDefault("db_max_conns", 10)
	v.SetDefault("db_min_conns", 0)
	v.SetDefault("db_conn_max_lifetime_seconds", 1800)
	v.SetDefault("db_connect_timeout_seconds", 10)
	v.SetDefault("rate_limit_requests", 0)
	v.SetDefault("rate_limit_window_seconds", 60)
	v.SetDefault("rate_limit_include_subject", false)
	v.SetDefault("rate_limit_fail_closed", false)
	v.SetDefault("rate_limit_max_keys", 10000)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_key_prefix", "cosmos:ratelimit")
	v.SetDefault("trace_exporter", TraceExporterNone)
	v.SetDefault("trace_sample_ratio", 1.0)
	v.SetDefault("trace_service_name", "cosmos")
}

func (c Config) Validate() error {
	var errs []error
	if _, err := domain.NormalizeTenantID(c.DefaultTenant); err != nil {
		errs = append(errs, fmt.Errorf("default_tenant: %w", err))
	}
	if strings.TrimSpace(c.TenantClaim) == "" {
		errs = append(errs, errors.New("tenant_claim must not be empty"))
	}
	switch c.AuthzEngine {
	case AuthzEngineNative, AuthzEngineOPA:
	default:
		errs = append(errs, fmt.Errorf("authz_engine %q is not one of native, opa", c.AuthzEngine))
	}
	if c.DBMaxConns <= 0 {
		errs = append(errs, errors.New("db_max_conns must be positive"))
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		errs = append(errs, errors.New("db_min_conns must be between 0 and db_max_conns"))
	}
	if c.RateLimitRequests < 0 {
		errs = append(errs, errors.New("rate_limit_requests must not be negative"))
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindowSeconds <= 0 {
		errs = append(errs, errors.New("rate_limit_window_seconds must be positive when rate limiting is on"))
	}
	switch c.TraceExporter {
	case TraceExporterNone, TraceExporterStdout:
	default:
		errs = append(errs, fmt.Errorf("trace_exporter %q is not one of none, stdout", c.TraceExporter))
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		errs = append(errs, errors.New("trace_sample_ratio must be between 0 and 1"))
	}
	return errors.Join(errs...)
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c Config) DBConnMaxLifetime() time.Duration {
	return time.Duration(c.DBConnMaxLifetimeSeconds) * time.Second
}

func (c Config) DBConnectTimeout() time.Duration {
	if c.DBConnectTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.DBConnectTimeoutSeconds) * time.Second
}
