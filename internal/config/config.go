package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
	Cookie   CookieConfig   `mapstructure:"cookie"`
	Campaign CampaignConfig `mapstructure:"campaign"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// PublicURL is the externally reachable base URL of this server.
	PublicURL    string        `mapstructure:"public_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// TrustedProxies lists proxy addresses or CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// EventsChannel is the pub/sub channel engagement events are published on.
	EventsChannel string `mapstructure:"events_channel"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	Password     PasswordConfig     `mapstructure:"password"`
	Tokens       TokenConfig        `mapstructure:"tokens"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
}

// PasswordConfig holds password hashing configuration
type PasswordConfig struct {
	MinLength         int    `mapstructure:"min_length"`
	Argon2Memory      uint32 `mapstructure:"argon2_memory"`
	Argon2Iterations  uint32 `mapstructure:"argon2_iterations"`
	Argon2Parallelism uint8  `mapstructure:"argon2_parallelism"`
}

// TokenConfig holds JWT token configuration
type TokenConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// RateLimitingConfig holds rate limiting configuration
type RateLimitingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// AuthLimit is the number of auth attempts allowed per AuthWindow per client.
	AuthLimit  int           `mapstructure:"auth_limit"`
	AuthWindow time.Duration `mapstructure:"auth_window"`
	// SendLimit is the number of send requests allowed per SendWindow per user.
	SendLimit  int           `mapstructure:"send_limit"`
	SendWindow time.Duration `mapstructure:"send_window"`
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	// Secure sets the Secure flag on cookies (should be true in production with HTTPS)
	Secure bool `mapstructure:"secure"`
	// SameSite controls the SameSite attribute: "lax", "strict", or "none"
	SameSite string `mapstructure:"same_site"`
}

// CampaignConfig holds bulk dispatch settings
type CampaignConfig struct {
	// SendInterval is the fixed wait between two consecutive sends of one campaign.
	SendInterval time.Duration `mapstructure:"send_interval"`
	// MaxResults caps the per-recipient results returned to HTTP callers.
	MaxResults int `mapstructure:"max_results"`
	// MaxConcurrent caps how many campaigns may run at once in this process.
	MaxConcurrent int64 `mapstructure:"max_concurrent"`
}

// TrackingConfig holds open/click tracking settings
type TrackingConfig struct {
	// BaseURL prefixes the pixel and click-redirect URLs. Falls back to
	// server.public_url, then to http://localhost:{port}.
	BaseURL string `mapstructure:"base_url"`
}

// SentryConfig holds error reporting settings. An empty DSN disables Sentry.
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// CORSConfig holds cross-origin settings for the dashboard
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TrackingBaseURL returns the base URL embedded in instrumented emails
func (c *Config) TrackingBaseURL() string {
	switch {
	case c.Tracking.BaseURL != "":
		return strings.TrimSuffix(c.Tracking.BaseURL, "/")
	case c.Server.PublicURL != "":
		return strings.TrimSuffix(c.Server.PublicURL, "/")
	default:
		return fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/bulkmail")

	return load(v)
}

// LoadFile reads configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables
	v.SetEnvPrefix("BULKMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.read_timeout", "30s")
	// Bulk sends hold the request open for the whole run.
	v.SetDefault("server.write_timeout", "2h")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.trusted_proxies", []string{})

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.events_channel", "bulkmail:engagement")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Security defaults
	v.SetDefault("security.password.min_length", 8)
	v.SetDefault("security.password.argon2_memory", 65536)
	v.SetDefault("security.password.argon2_iterations", 3)
	v.SetDefault("security.password.argon2_parallelism", 4)

	v.SetDefault("security.tokens.secret", "change-me-in-production")
	v.SetDefault("security.tokens.access_token_ttl", "24h")
	v.SetDefault("security.tokens.issuer", "bulkmail")

	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.auth_limit", 10)
	v.SetDefault("security.rate_limiting.auth_window", "15m")
	v.SetDefault("security.rate_limiting.send_limit", 30)
	v.SetDefault("security.rate_limiting.send_window", "1h")

	// Cookie defaults
	v.SetDefault("cookie.secure", false)
	v.SetDefault("cookie.same_site", "lax")

	// Campaign defaults
	v.SetDefault("campaign.send_interval", "1s")
	v.SetDefault("campaign.max_results", 50)
	v.SetDefault("campaign.max_concurrent", 8)

	v.SetDefault("tracking.base_url", "")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")

	v.SetDefault("cors.allowed_origins", []string{"*"})
}
