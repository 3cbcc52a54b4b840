// Package config loads the service configuration from YAML, struct defaults and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values
const (
	EnvJWTKeyFile   = "CREATOR_LEDGER_JWT_KEY_FILE"
	EnvAddr         = "CREATOR_LEDGER_ADDR"
	EnvPublicURL    = "CREATOR_LEDGER_PUBLIC_URL"
	EnvAdminWallets = "CREATOR_LEDGER_ADMIN_WALLETS"
	EnvRedisURL     = "REDIS_URL"
	EnvDatabaseURL  = "DATABASE_URL"
	EnvLogLevel     = "LOG_LEVEL"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Events    EventsConfig    `yaml:"events"`
	Admin     AdminConfig     `yaml:"admin"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr              string        `yaml:"addr" default:":9000" validate:"required"`
	PublicURL         string        `yaml:"public_url" default:"http://localhost:9000" validate:"required,url"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" default:"10s" validate:"gt=0"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" default:"30s" validate:"gt=0"`
	TrustedProxies    []string      `yaml:"trusted_proxies" validate:"dive,ip|cidr"`
}

// AuthConfig contains session and message freshness settings
type AuthConfig struct {
	Issuer        string        `yaml:"issuer" default:"creator-ledger" validate:"required"`
	JWTKeyFile    string        `yaml:"jwt_key_file"`
	AccessTTL     time.Duration `yaml:"access_ttl" default:"15m" validate:"gt=0"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl" default:"120h" validate:"gtfield=AccessTTL"`
	MessageMaxAge time.Duration `yaml:"message_max_age" default:"5m" validate:"gt=0"`
	ClockSkew     time.Duration `yaml:"clock_skew" default:"1m" validate:"gte=0"`
	StoreTimeout  time.Duration `yaml:"store_timeout" default:"5s" validate:"gt=0"`
}

// LimitConfig is one fixed-window limit
type LimitConfig struct {
	Max    int           `yaml:"max" validate:"gt=0"`
	Window time.Duration `yaml:"window" validate:"gt=0"`
}

// RateLimitConfig contains per-scope limits
type RateLimitConfig struct {
	Auth          LimitConfig   `yaml:"auth"`
	Claims        LimitConfig   `yaml:"claims"`
	Default       LimitConfig   `yaml:"default"`
	SweepInterval time.Duration `yaml:"sweep_interval" default:"1m" validate:"gt=0"`
}

// SetDefaults implements defaults.Setter
func (c *RateLimitConfig) SetDefaults() {
	if c.Auth == (LimitConfig{}) {
		c.Auth = LimitConfig{Max: 10, Window: time.Minute}
	}
	if c.Claims == (LimitConfig{}) {
		c.Claims = LimitConfig{Max: 20, Window: time.Hour}
	}
	if c.Default == (LimitConfig{}) {
		c.Default = LimitConfig{Max: 120, Window: time.Minute}
	}
}

// RedisConfig selects the shared Redis. Empty URL keeps all state in-process.
type RedisConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`
}

// DatabaseConfig selects PostgreSQL. Empty DSN keeps identities and claims in memory.
type DatabaseConfig struct {
	DSN         string `yaml:"dsn"`
	AutoMigrate bool   `yaml:"auto_migrate" default:"true"`
}

// EventsConfig tunes the Redis stream publisher
type EventsConfig struct {
	StreamMaxLen int64 `yaml:"stream_max_len" default:"10000" validate:"gte=0"`
}

// AdminConfig lists wallets allowed to review claims
type AdminConfig struct {
	Wallets []string `yaml:"wallets" validate:"dive,eth_addr"`
}

// LoggingConfig contains zap settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// Load reads the configuration at configPath. An empty path yields the defaults.
// Environment variables are applied last.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to set defaults: %w", err)
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return err
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(EnvPublicURL); v != "" {
		cfg.Server.PublicURL = v
	}
	if v := os.Getenv(EnvJWTKeyFile); v != "" {
		cfg.Auth.JWTKeyFile = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvAdminWallets); v != "" {
		cfg.Admin.Wallets = cfg.Admin.Wallets[:0]
		for _, w := range strings.Split(v, ",") {
			if w = strings.TrimSpace(w); w != "" {
				cfg.Admin.Wallets = append(cfg.Admin.Wallets, w)
			}
		}
	}
}
