package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// SettingsService manages the administrator-mutable platform settings. The
// fee ceiling comes from static config and bounds every runtime change.
type SettingsService struct {
	settings domain.SettingsStore
	audit    domain.AuditStore
	logger   *slog.Logger
	events   emitter

	feeCeiling int64
}

// NewSettingsService creates a SettingsService with all required
// dependencies.
func NewSettingsService(
	settings domain.SettingsStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
	feeCeiling int64,
) *SettingsService {
	return &SettingsService{
		settings:   settings,
		audit:      audit,
		logger:     logger,
		events:     emitter{bus: bus, logger: logger},
		feeCeiling: feeCeiling,
	}
}

// Get returns the current platform settings.
func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	out, err := s.settings.Get(ctx)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("settings_service: get: %w", err)
	}
	return out, nil
}

// SetFeePercent updates the platform fee percentage. Values outside
// [0, ceiling] are refused with domain.ErrFeeTooHigh; already-finalized
// competitions are unaffected, the new fee applies from the next
// finalization on.
func (s *SettingsService) SetFeePercent(ctx context.Context, pct int64) error {
	if pct < 0 || pct > s.feeCeiling {
		return fmt.Errorf("settings_service: %w: %d not in [0, %d]", domain.ErrFeeTooHigh, pct, s.feeCeiling)
	}

	if err := s.settings.SetFeePercent(ctx, pct); err != nil {
		return fmt.Errorf("settings_service: set fee percent: %w", err)
	}

	s.logger.InfoContext(ctx, "settings_service: fee percent changed",
		slog.Int64("fee_percent", pct),
	)

	if err := s.audit.Log(ctx, "fee_percent_changed", map[string]any{
		"fee_percent": pct,
	}); err != nil {
		s.logger.WarnContext(ctx, "settings_service: audit log failed",
			slog.String("error", err.Error()))
	}

	s.events.emit(ctx, domain.ChannelCompetitions, domain.EventSettingsChanged, map[string]any{
		"fee_percent": pct,
	})

	return nil
}

// SetRewardAsset updates the reward asset contract address. The address
// must be a well-formed hex account address.
func (s *SettingsService) SetRewardAsset(ctx context.Context, asset string) error {
	if !common.IsHexAddress(asset) {
		return fmt.Errorf("settings_service: %w: %q is not a hex address", domain.ErrInvalidAsset, asset)
	}

	if err := s.settings.SetRewardAsset(ctx, asset); err != nil {
		return fmt.Errorf("settings_service: set reward asset: %w", err)
	}

	s.logger.InfoContext(ctx, "settings_service: reward asset changed",
		slog.String("reward_asset", asset),
	)

	if err := s.audit.Log(ctx, "reward_asset_changed", map[string]any{
		"reward_asset": asset,
	}); err != nil {
		s.logger.WarnContext(ctx, "settings_service: audit log failed",
			slog.String("error", err.Error()))
	}

	s.events.emit(ctx, domain.ChannelCompetitions, domain.EventSettingsChanged, map[string]any{
		"reward_asset": asset,
	})

	return nil
}
