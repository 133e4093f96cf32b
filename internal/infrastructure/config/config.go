// Package config loads service configuration from the environment.
//
// Every knob has a sane default so the binary runs with zero configuration;
// production overrides happen through EXPRBOX_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix for all settings.
const Prefix = "EXPRBOX"

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Sandbox   SandboxConfig   `envconfig:"SANDBOX"`
	Resolver  ResolverConfig  `envconfig:"RESOLVER"`
	RateLimit RateLimitConfig `envconfig:"RATELIMIT"`
	Auth      AuthConfig      `envconfig:"AUTH"`
	Log       LogConfig       `envconfig:"LOG"`
}

// ServerConfig controls the HTTP listener.
//
// Leaf fields use split_words rather than explicit names: envconfig falls
// back to the bare alternate name when one is given, and a stray PORT or
// TIMEOUT in the environment must not leak into the config.
type ServerConfig struct {
	Host            string        `split_words:"true" default:"0.0.0.0"`
	Port            int           `split_words:"true" default:"8700"`
	ReadTimeout     time.Duration `split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `split_words:"true" default:"30s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
	AllowOrigins    []string      `split_words:"true" default:"*"`
}

// SandboxConfig controls the evaluation runtimes.
type SandboxConfig struct {
	PoolSize       int           `split_words:"true" default:"4"`
	Timeout        time.Duration `split_words:"true" default:"5s"`
	AcquireTimeout time.Duration `split_words:"true" default:"2s"`
	MaxCallStack   int           `split_words:"true" default:"1024"`
	EnableConsole  bool          `split_words:"true" default:"true"`
}

// ResolverConfig controls snapshot storage and environment access.
type ResolverConfig struct {
	SnapshotDir  string   `split_words:"true" default:""`
	Watch        bool     `split_words:"true" default:"false"`
	EnvAllowlist []string `split_words:"true" default:"*"`
}

// RateLimitConfig controls per-client request throttling.
type RateLimitConfig struct {
	Enabled bool    `split_words:"true" default:"true"`
	RPS     float64 `split_words:"true" default:"50"`
	Burst   int     `split_words:"true" default:"100"`
}

// AuthConfig controls bearer token authentication. An empty hash disables
// auth entirely; set TOKEN_HASH to a bcrypt hash of the shared token.
type AuthConfig struct {
	TokenHash string `split_words:"true" default:""`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level       string `split_words:"true" default:"info"`
	Development bool   `split_words:"true" default:"false"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault reads configuration from the environment, falling back to
// defaults if processing fails.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the built-in defaults without consulting the environment.
func Default() *Config {
	var cfg Config
	// Processing an unused prefix applies only the default tags.
	if err := envconfig.Process("EXPRBOX_UNSET_DEFAULTS_ONLY", &cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &cfg
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Sandbox.PoolSize < 1 {
		return fmt.Errorf("sandbox pool size %d must be positive", c.Sandbox.PoolSize)
	}
	if c.Sandbox.Timeout <= 0 {
		return fmt.Errorf("sandbox timeout %s must be positive", c.Sandbox.Timeout)
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps %f must be positive", c.RateLimit.RPS)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
