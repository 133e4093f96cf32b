package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8700, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8700", cfg.Server.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.AllowOrigins)

	assert.Equal(t, 4, cfg.Sandbox.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.Sandbox.Timeout)
	assert.True(t, cfg.Sandbox.EnableConsole)

	assert.Equal(t, []string{"*"}, cfg.Resolver.EnvAllowlist)
	assert.False(t, cfg.Resolver.Watch)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, float64(50), cfg.RateLimit.RPS)

	assert.Empty(t, cfg.Auth.TokenHash)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EXPRBOX_SERVER_PORT", "9101")
	t.Setenv("EXPRBOX_SANDBOX_POOL_SIZE", "8")
	t.Setenv("EXPRBOX_SANDBOX_TIMEOUT", "250ms")
	t.Setenv("EXPRBOX_RESOLVER_ENV_ALLOWLIST", "AWS_*,HOME")
	t.Setenv("EXPRBOX_AUTH_TOKEN_HASH", "$2a$10$fake")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9101, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Sandbox.PoolSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Sandbox.Timeout)
	assert.Equal(t, []string{"AWS_*", "HOME"}, cfg.Resolver.EnvAllowlist)
	assert.Equal(t, "$2a$10$fake", cfg.Auth.TokenHash)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("EXPRBOX_SERVER_PORT", "70000")

	_, err := Load()
	assert.ErrorContains(t, err, "out of range")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "out of range"},
		{"bad pool size", func(c *Config) { c.Sandbox.PoolSize = 0 }, "must be positive"},
		{"bad timeout", func(c *Config) { c.Sandbox.Timeout = 0 }, "must be positive"},
		{"bad rps", func(c *Config) { c.RateLimit.RPS = -1 }, "must be positive"},
		{"zero rps when disabled", func(c *Config) { c.RateLimit.Enabled = false; c.RateLimit.RPS = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("EXPRBOX_SERVER_PORT", "not-a-number")

	cfg := LoadOrDefault()
	assert.Equal(t, 8700, cfg.Server.Port)
}
