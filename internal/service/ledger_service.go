package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// LedgerService exposes the balance ledger: reads and the atomic
// read-and-zero withdrawal.
type LedgerService struct {
	balances domain.BalanceStore
	payouts  domain.PayoutStore
	settings domain.SettingsStore
	rail     domain.PaymentRail
	audit    domain.AuditStore
	logger   *slog.Logger
	events   emitter
}

// NewLedgerService creates a LedgerService with all required dependencies.
func NewLedgerService(
	balances domain.BalanceStore,
	payouts domain.PayoutStore,
	settings domain.SettingsStore,
	rail domain.PaymentRail,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		balances: balances,
		payouts:  payouts,
		settings: settings,
		rail:     rail,
		audit:    audit,
		logger:   logger,
		events:   emitter{bus: bus, logger: logger},
	}
}

// Balance returns the participant's current withdrawable credit. A missing
// row reads as zero.
func (s *LedgerService) Balance(ctx context.Context, participant string) (domain.Balance, error) {
	b, err := s.balances.Get(ctx, participant)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("ledger_service: balance %s: %w", participant, err)
	}
	return b, nil
}

// Withdraw zeroes the participant's balance and pushes the amount out over
// the payment rail. The settings read happens before any mutation; the
// zeroing and the pending payout row then commit in one store transaction,
// so a reduced credit is always backed by a recorded debt. A rail failure
// marks the payout failed and never restores the internal balance, so
// double withdrawal is impossible.
func (s *LedgerService) Withdraw(ctx context.Context, participant string) (domain.Payout, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return domain.Payout{}, fmt.Errorf("ledger_service: settings: %w", err)
	}

	payout, err := s.balances.WithdrawAll(ctx, participant, cfg.RewardAsset)
	if err != nil {
		return domain.Payout{}, fmt.Errorf("ledger_service: withdraw %s: %w", participant, err)
	}
	amount := payout.Amount
	payoutID := payout.ID

	s.logger.InfoContext(ctx, "ledger_service: withdrawal",
		slog.String("participant", participant),
		slog.Int64("amount", amount),
		slog.Int64("payout_id", payoutID),
	)

	txHash, err := s.rail.TransferOut(ctx, cfg.RewardAsset, participant, amount)
	if err != nil {
		s.logger.ErrorContext(ctx, "ledger_service: withdrawal transfer failed",
			slog.Int64("payout_id", payoutID),
			slog.String("error", err.Error()),
		)
		if markErr := s.payouts.MarkFailed(ctx, payoutID, err.Error()); markErr != nil {
			s.logger.ErrorContext(ctx, "ledger_service: mark payout failed",
				slog.Int64("payout_id", payoutID),
				slog.String("error", markErr.Error()),
			)
		}
		payout.Status = domain.PayoutFailed
		payout.FailReason = err.Error()
		return payout, nil
	}

	if err := s.payouts.MarkSent(ctx, payoutID, txHash); err != nil {
		s.logger.ErrorContext(ctx, "ledger_service: mark payout sent failed",
			slog.Int64("payout_id", payoutID),
			slog.String("error", err.Error()),
		)
	}
	payout.Status = domain.PayoutSent
	payout.TxHash = txHash

	s.events.emit(ctx, domain.ChannelBalances, domain.EventWithdrawal, domain.WithdrawalPayload{
		Participant: participant,
		Amount:      amount,
		PayoutID:    payoutID,
		TxHash:      txHash,
	})

	if err := s.audit.Log(ctx, "withdrawal", map[string]any{
		"participant": participant,
		"amount":      amount,
		"payout_id":   payoutID,
		"tx_hash":     txHash,
	}); err != nil {
		s.logger.WarnContext(ctx, "ledger_service: audit log failed",
			slog.String("error", err.Error()))
	}

	return payout, nil
}

// RetryFailedPayouts re-attempts every failed external transfer. Used by the
// worker loop to drain debts left by rail outages.
func (s *LedgerService) RetryFailedPayouts(ctx context.Context) (int, error) {
	failed, err := s.payouts.ListByStatus(ctx, domain.PayoutFailed, domain.ListOpts{Limit: 100})
	if err != nil {
		return 0, fmt.Errorf("ledger_service: list failed payouts: %w", err)
	}

	sent := 0
	for _, p := range failed {
		txHash, err := s.rail.TransferOut(ctx, p.Asset, p.Account, p.Amount)
		if err != nil {
			s.logger.WarnContext(ctx, "ledger_service: payout retry failed",
				slog.Int64("payout_id", p.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := s.payouts.MarkSent(ctx, p.ID, txHash); err != nil {
			s.logger.ErrorContext(ctx, "ledger_service: mark payout sent failed",
				slog.Int64("payout_id", p.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		sent++
	}
	return sent, nil
}
