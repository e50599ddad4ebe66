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
// built-in defaults, applies QUIZPOOL_* environment variable overrides, and
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

// applyEnvOverrides reads well-known QUIZPOOL_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "QUIZPOOL_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "QUIZPOOL_DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "QUIZPOOL_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "QUIZPOOL_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "QUIZPOOL_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "QUIZPOOL_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "QUIZPOOL_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "QUIZPOOL_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "QUIZPOOL_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "QUIZPOOL_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "QUIZPOOL_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "QUIZPOOL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "QUIZPOOL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "QUIZPOOL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "QUIZPOOL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "QUIZPOOL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "QUIZPOOL_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "QUIZPOOL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "QUIZPOOL_S3_REGION")
	setStr(&cfg.S3.Bucket, "QUIZPOOL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "QUIZPOOL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "QUIZPOOL_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "QUIZPOOL_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "QUIZPOOL_S3_FORCE_PATH_STYLE")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "QUIZPOOL_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "QUIZPOOL_CHAIN_ID")
	setStr(&cfg.Chain.TreasuryAddress, "QUIZPOOL_CHAIN_TREASURY_ADDRESS")
	setStr(&cfg.Chain.PrivateKey, "QUIZPOOL_CHAIN_PRIVATE_KEY")
	setStr(&cfg.Chain.EncryptedKeyPath, "QUIZPOOL_CHAIN_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Chain.KeyPassword, "QUIZPOOL_CHAIN_KEY_PASSWORD")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "QUIZPOOL_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "QUIZPOOL_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "QUIZPOOL_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.AdminKey, "QUIZPOOL_SERVER_ADMIN_KEY")
	setInt(&cfg.Server.JoinRateLimit, "QUIZPOOL_SERVER_JOIN_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "QUIZPOOL_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "QUIZPOOL_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "QUIZPOOL_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "QUIZPOOL_NOTIFY_EVENTS")

	// ── Settlement ──
	setInt64(&cfg.Settlement.FeePercent, "QUIZPOOL_SETTLEMENT_FEE_PERCENT")
	setInt64(&cfg.Settlement.FeeCeilingPercent, "QUIZPOOL_SETTLEMENT_FEE_CEILING_PERCENT")
	setStr(&cfg.Settlement.RewardAsset, "QUIZPOOL_SETTLEMENT_REWARD_ASSET")
	setInt(&cfg.Settlement.ArchiveRetentionDays, "QUIZPOOL_SETTLEMENT_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Settlement.ArchiveInterval, "QUIZPOOL_SETTLEMENT_ARCHIVE_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.Mode, "QUIZPOOL_MODE")
	setStr(&cfg.LogLevel, "QUIZPOOL_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
