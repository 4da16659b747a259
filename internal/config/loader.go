package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETLENS_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETLENS_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "MARKETLENS_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "MARKETLENS_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.DataHost, "MARKETLENS_POLYMARKET_DATA_HOST")
	setStr(&cfg.Polymarket.PnlHost, "MARKETLENS_POLYMARKET_PNL_HOST")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MARKETLENS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETLENS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETLENS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETLENS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETLENS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETLENS_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "MARKETLENS_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "MARKETLENS_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MARKETLENS_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MARKETLENS_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MARKETLENS_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MARKETLENS_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MARKETLENS_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MARKETLENS_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MARKETLENS_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MARKETLENS_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MARKETLENS_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "MARKETLENS_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MARKETLENS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MARKETLENS_S3_REGION")
	setStr(&cfg.S3.Bucket, "MARKETLENS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MARKETLENS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MARKETLENS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MARKETLENS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MARKETLENS_S3_FORCE_PATH_STYLE")

	// ── Cache ──
	setDuration(&cfg.Cache.FreshTTL, "MARKETLENS_CACHE_FRESH_TTL")
	setDuration(&cfg.Cache.StaleTTL, "MARKETLENS_CACHE_STALE_TTL")
	setDuration(&cfg.Cache.BookTTL, "MARKETLENS_CACHE_BOOK_TTL")
	setDuration(&cfg.Cache.HoldersTTL, "MARKETLENS_CACHE_HOLDERS_TTL")
	setDuration(&cfg.Cache.HistoryTTL, "MARKETLENS_CACHE_HISTORY_TTL")

	// ── Fetch ──
	setInt(&cfg.Fetch.PageSize, "MARKETLENS_FETCH_PAGE_SIZE")
	setInt(&cfg.Fetch.Concurrency, "MARKETLENS_FETCH_CONCURRENCY")
	setInt(&cfg.Fetch.MaxPages, "MARKETLENS_FETCH_MAX_PAGES")
	setDuration(&cfg.Fetch.PageTimeout, "MARKETLENS_FETCH_PAGE_TIMEOUT")
	setDuration(&cfg.Fetch.Interval, "MARKETLENS_FETCH_INTERVAL")

	// ── Server ──
	setInt(&cfg.Server.Port, "MARKETLENS_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETLENS_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "MARKETLENS_SERVER_RATE_LIMIT")
	setStr(&cfg.Server.AdminKey, "MARKETLENS_SERVER_ADMIN_KEY")

	// ── Top-level ──
	setStr(&cfg.Mode, "MARKETLENS_MODE")
	setStr(&cfg.LogLevel, "MARKETLENS_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
