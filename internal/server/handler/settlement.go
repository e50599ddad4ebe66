package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// SettlementService defines the methods that the settlement handler requires
// from the service layer.
type SettlementService interface {
	Finalize(ctx context.Context, competitionID int64) (domain.SettlementResult, error)
}

// SettlementHandler serves the finalization endpoint.
type SettlementHandler struct {
	settlement SettlementService
	logger     *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler with the given service and
// logger.
func NewSettlementHandler(settlement SettlementService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settlement: settlement,
		logger:     logger,
	}
}

// Finalize settles an ended competition and returns the full settlement
// breakdown. Idempotency is enforced below the handler: a repeat call comes
// back 409. Admin only.
// POST /api/competitions/{id}/finalize
func (h *SettlementHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid competition id")
		return
	}

	result, err := h.settlement.Finalize(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
