package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// SettingsStore implements domain.SettingsStore using PostgreSQL. The
// settings table holds a single row pinned to id 1, seeded by migration.
type SettingsStore struct {
	pool *pgxpool.Pool
}

// NewSettingsStore creates a new SettingsStore backed by the given
// connection pool.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Get returns the current platform settings.
func (s *SettingsStore) Get(ctx context.Context) (domain.Settings, error) {
	const query = `SELECT fee_percent, reward_asset, updated_at FROM settings WHERE id = 1`

	var out domain.Settings
	err := s.pool.QueryRow(ctx, query).Scan(&out.FeePercent, &out.RewardAsset, &out.UpdatedAt)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("postgres: get settings: %w", err)
	}
	return out, nil
}

// SetFeePercent updates the platform fee percentage. Bound checks against
// the configured ceiling happen in the service layer.
func (s *SettingsStore) SetFeePercent(ctx context.Context, pct int64) error {
	const query = `UPDATE settings SET fee_percent = $1, updated_at = NOW() WHERE id = 1`

	if _, err := s.pool.Exec(ctx, query, pct); err != nil {
		return fmt.Errorf("postgres: set fee percent: %w", err)
	}
	return nil
}

// SetRewardAsset updates the reward asset contract address.
func (s *SettingsStore) SetRewardAsset(ctx context.Context, asset string) error {
	const query = `UPDATE settings SET reward_asset = $1, updated_at = NOW() WHERE id = 1`

	if _, err := s.pool.Exec(ctx, query, asset); err != nil {
		return fmt.Errorf("postgres: set reward asset: %w", err)
	}
	return nil
}
