package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "turbo" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"empty gamma host", func(c *Config) { c.Polymarket.GammaHost = "" }},
		{"empty redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"stale not past fresh", func(c *Config) { c.Cache.StaleTTL = c.Cache.FreshTTL }},
		{"zero page size", func(c *Config) { c.Fetch.PageSize = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "server"
log_level = "debug"

[cache]
fresh_ttl = "90s"
stale_ttl = "8m"

[fetch]
concurrency = 4
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 90*time.Second, cfg.Cache.FreshTTL.Duration)
	assert.Equal(t, 8*time.Minute, cfg.Cache.StaleTTL.Duration)
	assert.Equal(t, 4, cfg.Fetch.Concurrency)

	// Untouched sections keep their defaults.
	assert.Equal(t, 100, cfg.Fetch.PageSize)
	assert.Equal(t, "https://gamma-api.polymarket.com", cfg.Polymarket.GammaHost)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MARKETLENS_MODE", "fetch")
	t.Setenv("MARKETLENS_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("MARKETLENS_FETCH_PAGE_TIMEOUT", "45s")
	t.Setenv("MARKETLENS_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "fetch", cfg.Mode)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 45*time.Second, cfg.Fetch.PageTimeout.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}
