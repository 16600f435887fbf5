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
// built-in defaults, applies POLLHOUSE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLLHOUSE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Telegram ──
	setStr(&cfg.Telegram.BotToken, "POLLHOUSE_TELEGRAM_BOT_TOKEN")
	setDuration(&cfg.Telegram.InitDataMaxAge, "POLLHOUSE_TELEGRAM_INIT_DATA_MAX_AGE")

	// ── Auth ──
	setStr(&cfg.Auth.JWTSecret, "POLLHOUSE_AUTH_JWT_SECRET")
	setDuration(&cfg.Auth.TokenTTL, "POLLHOUSE_AUTH_TOKEN_TTL")

	// ── Database ──
	setStr(&cfg.Database.DSN, "POLLHOUSE_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "POLLHOUSE_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "POLLHOUSE_DATABASE_HOST")
	setInt(&cfg.Database.Port, "POLLHOUSE_DATABASE_PORT")
	setStr(&cfg.Database.Database, "POLLHOUSE_DATABASE_NAME")
	setStr(&cfg.Database.User, "POLLHOUSE_DATABASE_USER")
	setStr(&cfg.Database.Password, "POLLHOUSE_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "POLLHOUSE_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "POLLHOUSE_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "POLLHOUSE_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "POLLHOUSE_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "POLLHOUSE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "POLLHOUSE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLLHOUSE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLLHOUSE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLLHOUSE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLLHOUSE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLLHOUSE_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.CacheTTL, "POLLHOUSE_REDIS_CACHE_TTL")

	// ── Server ──
	setInt(&cfg.Server.Port, "POLLHOUSE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POLLHOUSE_SERVER_CORS_ORIGINS")
	setDuration(&cfg.Server.ReadTimeout, "POLLHOUSE_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "POLLHOUSE_SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "POLLHOUSE_SERVER_SHUTDOWN_TIMEOUT")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "POLLHOUSE_LOG_LEVEL")
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
