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
// built-in defaults, applies SETTLER_* environment variable overrides, and
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

// applyEnvOverrides reads well-known SETTLER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "SETTLER_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "SETTLER_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "SETTLER_WALLET_KEY_PASSWORD")

	// ── Engine ──
	setStr(&cfg.Engine.CollateralAsset, "SETTLER_ENGINE_COLLATERAL_ASSET")
	setDuration(&cfg.Engine.ChallengeWindow, "SETTLER_ENGINE_CHALLENGE_WINDOW")
	setUint64(&cfg.Engine.ProposerBond, "SETTLER_ENGINE_PROPOSER_BOND")
	setUint16(&cfg.Engine.DefaultFeeBps, "SETTLER_ENGINE_DEFAULT_FEE_BPS")
	setStringSlice(&cfg.Engine.AuthorizedCallers, "SETTLER_ENGINE_AUTHORIZED_CALLERS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SETTLER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SETTLER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SETTLER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SETTLER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SETTLER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SETTLER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SETTLER_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SETTLER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SETTLER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SETTLER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SETTLER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SETTLER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SETTLER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SETTLER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SETTLER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SETTLER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SETTLER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SETTLER_S3_REGION")
	setStr(&cfg.S3.Bucket, "SETTLER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SETTLER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SETTLER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SETTLER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SETTLER_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SETTLER_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "SETTLER_ARCHIVE_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SETTLER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SETTLER_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "SETTLER_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "SETTLER_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimitPerMin, "SETTLER_SERVER_RATE_LIMIT_PER_MIN")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SETTLER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SETTLER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SETTLER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SETTLER_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SETTLER_MODE")
	setStr(&cfg.LogLevel, "SETTLER_LOG_LEVEL")
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

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint16(dst *uint16, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			*dst = uint16(n)
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
