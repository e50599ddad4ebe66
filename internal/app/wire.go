package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/quizpool/internal/blob/s3"
	"github.com/alanyoungcy/quizpool/internal/cache/redis"
	"github.com/alanyoungcy/quizpool/internal/config"
	"github.com/alanyoungcy/quizpool/internal/crypto"
	"github.com/alanyoungcy/quizpool/internal/domain"
	"github.com/alanyoungcy/quizpool/internal/notify"
	"github.com/alanyoungcy/quizpool/internal/payment/evm"
	"github.com/alanyoungcy/quizpool/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	CompetitionStore domain.CompetitionStore
	QuestionStore    domain.QuestionStore
	BalanceStore     domain.BalanceStore
	PayoutStore      domain.PayoutStore
	SettingsStore    domain.SettingsStore
	AuditStore       domain.AuditStore

	// Caches and coordination
	CompetitionCache domain.CompetitionCache
	RateLimiter      domain.RateLimiter
	LockManager      domain.LockManager
	SignalBus        domain.SignalBus

	// Payment rail
	Rail domain.PaymentRail

	// Blob storage
	BlobWriter  domain.BlobWriter
	BlobReader  domain.BlobReader
	BlobDeleter domain.BlobDeleter
	Archiver    domain.Archiver

	// Notifications
	Notifier *notify.Notifier

	// Clock used for all lifecycle gating.
	Clock domain.Clock
}

// needsS3 returns true for modes that run the archival loop.
func needsS3(mode string) bool {
	switch mode {
	case "worker", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Clock: domain.SystemClock{}}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.CompetitionStore = postgres.NewCompetitionStore(pool)
	deps.QuestionStore = postgres.NewQuestionStore(pool)
	deps.BalanceStore = postgres.NewBalanceStore(pool)
	deps.PayoutStore = postgres.NewPayoutStore(pool)
	deps.SettingsStore = postgres.NewSettingsStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	if err := seedSettings(ctx, deps.SettingsStore, cfg, logger); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: seed settings: %w", err)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.CompetitionCache = redis.NewCompetitionCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Payment rail ---
	// A missing treasury key is allowed in server mode: withdrawals then leave
	// failed payout rows that the worker drains once a keyed instance runs.
	if cfg.Chain.PrivateKey != "" || cfg.Chain.EncryptedKeyPath != "" {
		keyHex, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Chain.PrivateKey,
			EncryptedKeyPath: cfg.Chain.EncryptedKeyPath,
			KeyPassword:      cfg.Chain.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: treasury key: %w", err)
		}
		rail, err := evm.New(ctx, cfg.Chain.RPCURL, cfg.Chain.ChainID, keyHex)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: payment rail: %w", err)
		}
		closers = append(closers, rail.Close)
		deps.Rail = rail
	} else {
		deps.Rail = unavailableRail{}
	}

	// --- S3 blob storage (only for modes that archive) ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		reader := s3blob.NewReader(s3Client)
		deps.BlobReader = reader
		deps.BlobDeleter = reader // same type implements BlobDeleter
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.CompetitionStore, deps.AuditStore)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// seedSettings applies the configured fee percent and reward asset on first
// boot. An empty stored reward asset marks a fresh install; after that the
// settings row is owned by the admin API and config values are ignored.
func seedSettings(ctx context.Context, store domain.SettingsStore, cfg *config.Config, logger *slog.Logger) error {
	current, err := store.Get(ctx)
	if err != nil {
		return err
	}
	if current.RewardAsset != "" {
		return nil
	}

	if err := store.SetFeePercent(ctx, cfg.Settlement.FeePercent); err != nil {
		return err
	}
	if cfg.Settlement.RewardAsset != "" {
		if err := store.SetRewardAsset(ctx, cfg.Settlement.RewardAsset); err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "wire: seeded platform settings",
		slog.Int64("fee_percent", cfg.Settlement.FeePercent),
		slog.String("reward_asset", cfg.Settlement.RewardAsset),
	)
	return nil
}

// unavailableRail stands in when no treasury key is configured. Every
// transfer fails, which downgrades fee routing and withdrawals to failed
// payout rows without touching settled internal state.
type unavailableRail struct{}

func (unavailableRail) TransferOut(ctx context.Context, asset, account string, amount int64) (string, error) {
	return "", errors.New("payment rail unavailable: no treasury key configured")
}
