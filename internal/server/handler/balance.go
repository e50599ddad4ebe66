package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// LedgerService defines the methods that the balance handler requires from
// the service layer.
type LedgerService interface {
	Balance(ctx context.Context, participant string) (domain.Balance, error)
	Withdraw(ctx context.Context, participant string) (domain.Payout, error)
}

// BalanceHandler serves balance and withdrawal HTTP endpoints.
type BalanceHandler struct {
	ledger LedgerService
	logger *slog.Logger
}

// NewBalanceHandler creates a BalanceHandler with the given service and
// logger.
func NewBalanceHandler(ledger LedgerService, logger *slog.Logger) *BalanceHandler {
	return &BalanceHandler{
		ledger: ledger,
		logger: logger,
	}
}

// GetBalance returns the participant's withdrawable credit. Unknown
// participants read as a zero balance.
// GET /api/balances/{participant}
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	participant := pathParam(r, "participant")
	if participant == "" {
		writeError(w, http.StatusBadRequest, "missing participant")
		return
	}

	b, err := h.ledger.Balance(r.Context(), participant)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	b.Participant = participant

	writeJSON(w, http.StatusOK, b)
}

// Withdraw zeroes the participant's balance and pushes the amount out over
// the payment rail. The payout record is returned even when the external
// transfer failed; its status tells the caller whether the funds moved.
// POST /api/balances/{participant}/withdraw
func (h *BalanceHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	participant := pathParam(r, "participant")
	if participant == "" {
		writeError(w, http.StatusBadRequest, "missing participant")
		return
	}

	payout, err := h.ledger.Withdraw(r.Context(), participant)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if payout.Status == domain.PayoutFailed {
		// The balance is zeroed and the debt recorded; the transfer itself
		// will be retried by the worker.
		status = http.StatusAccepted
	}
	writeJSON(w, status, payout)
}
