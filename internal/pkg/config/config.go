package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// App kinds. The admin app lists every tenant with a tenant column; the
// embedded app is scoped to a single tenant.
const (
	AppAdmin    = "admin"
	AppEmbedded = "embedded"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// EnvPrefix prefixes every dashboard-specific environment variable.
// Nested keys are separated by a double underscore: SK8_SERVER__PORT.
const EnvPrefix = "SK8_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	Cache     CacheConfig     `koanf:"cache"`
	App       AppConfig       `koanf:"app"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// UpstreamConfig points the proxy at the pipeline API.
type UpstreamConfig struct {
	BaseURL         string `koanf:"base_url"`          // AWS_API_BASE_URL
	DefaultTenantID string `koanf:"default_tenant_id"` // DEFAULT_TENANT_ID
	DenyPrivate     bool   `koanf:"deny_private"`      // Refuse private/loopback upstream addresses
}

type CacheConfig struct {
	Type  string        `koanf:"type"` // memory, redis
	TTL   time.Duration `koanf:"ttl"`
	Redis RedisConfig   `koanf:"redis"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type AppConfig struct {
	Kind       string `koanf:"kind"`
	VendorName string `koanf:"vendor_name"`
}

type TelemetryConfig struct {
	Tracing bool `koanf:"tracing"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads configuration from path (skipped when empty or missing), then
// SK8_ environment variables, then the AWS_API_BASE_URL and DEFAULT_TENANT_ID
// variables the upstream deployment already uses.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider("", ".", upstreamEnvKey), nil); err != nil {
		return nil, err
	}

	// Default values
	defaults := map[string]any{
		"server.port":        8080,
		"server.timeout":     "30s",
		"cache.type":         CacheMemory,
		"cache.ttl":          "60s",
		"cache.redis.addr":   "localhost:6379",
		"cache.redis.prefix": "sk8:",
		"app.kind":           AppEmbedded,
		"app.vendor_name":    "Vendor 1",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Cache.Redis.Password = substituteEnvVars(cfg.Cache.Redis.Password)

	return &cfg, nil
}

// upstreamEnvKey maps the two unprefixed variables onto config keys and
// drops every other variable in the environment.
func upstreamEnvKey(s string) string {
	switch s {
	case "AWS_API_BASE_URL":
		return "upstream.base_url"
	case "DEFAULT_TENANT_ID":
		return "upstream.default_tenant_id"
	default:
		return ""
	}
}

// Validate reports the first setting that prevents the dashboard from starting.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base URL is required (set AWS_API_BASE_URL)")
	}
	switch c.Cache.Type {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown cache type %q", c.Cache.Type)
	}
	switch c.App.Kind {
	case AppAdmin, AppEmbedded:
	default:
		return fmt.Errorf("unknown app kind %q", c.App.Kind)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL)
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
