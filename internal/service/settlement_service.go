package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/quizpool/internal/domain"
	"github.com/alanyoungcy/quizpool/internal/settlement"
)

// finalizeLockTTL bounds how long a crashed finalizer can block a retry.
const finalizeLockTTL = 30 * time.Second

// SettlementService finalizes ended competitions: it computes the
// proportional split, commits the credits, and routes the platform fee to
// the treasury over the payment rail.
type SettlementService struct {
	competitions domain.CompetitionStore
	payouts      domain.PayoutStore
	settings     domain.SettingsStore
	cache        domain.CompetitionCache
	locks        domain.LockManager
	rail         domain.PaymentRail
	audit        domain.AuditStore
	clock        domain.Clock
	logger       *slog.Logger
	events       emitter

	treasury string
}

// NewSettlementService creates a SettlementService with all required
// dependencies. treasury is the account that receives platform fees.
func NewSettlementService(
	competitions domain.CompetitionStore,
	payouts domain.PayoutStore,
	settings domain.SettingsStore,
	cache domain.CompetitionCache,
	locks domain.LockManager,
	rail domain.PaymentRail,
	bus domain.SignalBus,
	audit domain.AuditStore,
	clock domain.Clock,
	logger *slog.Logger,
	treasury string,
) *SettlementService {
	return &SettlementService{
		competitions: competitions,
		payouts:      payouts,
		settings:     settings,
		cache:        cache,
		locks:        locks,
		rail:         rail,
		audit:        audit,
		clock:        clock,
		logger:       logger,
		events:       emitter{bus: bus, logger: logger},
		treasury:     treasury,
	}
}

// Finalize settles one competition. It is at-most-once: a distributed lock
// keeps concurrent finalizers apart, and the store's conditional deactivate
// catches anything that slips past the lock. Fee routing happens only after
// the internal ledger has committed; a rail failure leaves the fee recorded
// as a failed payout, never as lost state.
func (s *SettlementService) Finalize(ctx context.Context, competitionID int64) (domain.SettlementResult, error) {
	unlock, err := s.locks.Acquire(ctx, fmt.Sprintf("finalize:%d", competitionID), finalizeLockTTL)
	if err != nil {
		return domain.SettlementResult{}, fmt.Errorf("settlement_service: %w", err)
	}
	defer unlock()

	c, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		return domain.SettlementResult{}, fmt.Errorf("settlement_service: get %d: %w", competitionID, err)
	}
	if !c.Active {
		return domain.SettlementResult{}, fmt.Errorf("settlement_service: %w", domain.ErrCompetitionInactive)
	}
	if !s.clock.Now().After(c.EndTime) {
		return domain.SettlementResult{}, fmt.Errorf("settlement_service: %w: ends %s",
			domain.ErrNotYetEnded, c.EndTime.Format(time.RFC3339))
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return domain.SettlementResult{}, fmt.Errorf("settlement_service: settings: %w", err)
	}

	participants, err := s.competitions.Participants(ctx, competitionID)
	if err != nil {
		return domain.SettlementResult{}, fmt.Errorf("settlement_service: participants: %w", err)
	}

	result := settlement.Split(competitionID, c.RewardPool, cfg.FeePercent, participants)

	if err := s.competitions.Finalize(ctx, competitionID, result.Rewards); err != nil {
		return domain.SettlementResult{}, fmt.Errorf("settlement_service: finalize: %w", err)
	}

	if err := s.cache.Invalidate(ctx, competitionID); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: cache invalidate failed",
			slog.Int64("competition_id", competitionID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "settlement_service: competition finalized",
		slog.Int64("competition_id", competitionID),
		slog.Int64("pool", result.Pool),
		slog.Int64("platform_fee", result.PlatformFee),
		slog.Int64("total_score", result.TotalScore),
		slog.Int("rewards", len(result.Rewards)),
		slog.Int64("dust", result.Dust),
		slog.Int64("stranded", result.Stranded),
	)

	if err := s.audit.Log(ctx, "competition_finalized", map[string]any{
		"competition_id": competitionID,
		"pool":           result.Pool,
		"fee_percent":    result.FeePercent,
		"platform_fee":   result.PlatformFee,
		"total_score":    result.TotalScore,
		"rewards":        len(result.Rewards),
		"dust":           result.Dust,
		"stranded":       result.Stranded,
	}); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: audit log failed",
			slog.String("error", err.Error()))
	}

	for _, rc := range result.Rewards {
		s.events.emit(ctx, domain.ChannelSettlements, domain.EventRewardCredited, domain.RewardCreditedPayload{
			CompetitionID: competitionID,
			Participant:   rc.Participant,
			Amount:        rc.Amount,
		})
	}

	// Internal state is committed; now route the fee out.
	if result.PlatformFee > 0 {
		s.routeFee(ctx, competitionID, cfg.RewardAsset, result.PlatformFee)
	}

	return result, nil
}

// routeFee records and attempts the external fee transfer. Failures are
// terminal for the attempt but not for the settlement: the payout row stays
// in failed status as the record of what the treasury is still owed.
func (s *SettlementService) routeFee(ctx context.Context, competitionID int64, asset string, amount int64) {
	payoutID, err := s.payouts.Create(ctx, domain.Payout{
		Kind:          domain.PayoutKindFee,
		Account:       s.treasury,
		Asset:         asset,
		Amount:        amount,
		CompetitionID: &competitionID,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "settlement_service: record fee payout failed",
			slog.Int64("competition_id", competitionID),
			slog.Int64("amount", amount),
			slog.String("error", err.Error()),
		)
		return
	}

	txHash, err := s.rail.TransferOut(ctx, asset, s.treasury, amount)
	if err != nil {
		s.logger.ErrorContext(ctx, "settlement_service: fee transfer failed",
			slog.Int64("payout_id", payoutID),
			slog.Int64("amount", amount),
			slog.String("error", err.Error()),
		)
		if markErr := s.payouts.MarkFailed(ctx, payoutID, err.Error()); markErr != nil {
			s.logger.ErrorContext(ctx, "settlement_service: mark payout failed",
				slog.Int64("payout_id", payoutID),
				slog.String("error", markErr.Error()),
			)
		}
		return
	}

	if err := s.payouts.MarkSent(ctx, payoutID, txHash); err != nil {
		s.logger.ErrorContext(ctx, "settlement_service: mark payout sent failed",
			slog.Int64("payout_id", payoutID),
			slog.String("error", err.Error()),
		)
	}

	s.events.emit(ctx, domain.ChannelSettlements, domain.EventFeeRouted, domain.FeeRoutedPayload{
		CompetitionID: competitionID,
		Amount:        amount,
		PayoutID:      payoutID,
		TxHash:        txHash,
	})
}

// FinalizeEnded settles every active competition whose end time has passed.
// It is the worker-loop entry point; per-competition failures are logged and
// do not stop the sweep.
func (s *SettlementService) FinalizeEnded(ctx context.Context) (int, error) {
	comps, err := s.competitions.List(ctx, domain.ListOpts{})
	if err != nil {
		return 0, fmt.Errorf("settlement_service: list: %w", err)
	}

	now := s.clock.Now()
	settled := 0
	for _, c := range comps {
		if !c.Active || !now.After(c.EndTime) {
			continue
		}
		if _, err := s.Finalize(ctx, c.ID); err != nil {
			s.logger.WarnContext(ctx, "settlement_service: sweep finalize failed",
				slog.Int64("competition_id", c.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		settled++
	}
	return settled, nil
}
