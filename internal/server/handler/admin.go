package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// SettingsService defines the methods that the admin handler requires from
// the service layer.
type SettingsService interface {
	Get(ctx context.Context) (domain.Settings, error)
	SetFeePercent(ctx context.Context, pct int64) error
	SetRewardAsset(ctx context.Context, asset string) error
}

// AdminHandler serves the admin-only settings and audit endpoints.
type AdminHandler struct {
	settings SettingsService
	audit    domain.AuditStore
	logger   *slog.Logger
}

// NewAdminHandler creates an AdminHandler with the given dependencies.
func NewAdminHandler(settings SettingsService, audit domain.AuditStore, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		settings: settings,
		audit:    audit,
		logger:   logger,
	}
}

// updateSettingsRequest carries the mutable settings. Pointer fields
// distinguish "leave unchanged" from an explicit zero.
type updateSettingsRequest struct {
	FeePercent  *int64  `json:"fee_percent,omitempty"`
	RewardAsset *string `json:"reward_asset,omitempty"`
}

// GetSettings returns the current platform settings.
// GET /api/admin/settings
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.Get(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdateSettings applies the provided settings changes. Each field is
// validated independently; the first rejected field aborts the request.
// PUT /api/admin/settings
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.FeePercent == nil && req.RewardAsset == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	if req.FeePercent != nil {
		if err := h.settings.SetFeePercent(r.Context(), *req.FeePercent); err != nil {
			writeDomainError(w, r, h.logger, err)
			return
		}
	}
	if req.RewardAsset != nil {
		if err := h.settings.SetRewardAsset(r.Context(), *req.RewardAsset); err != nil {
			writeDomainError(w, r, h.logger, err)
			return
		}
	}

	cfg, err := h.settings.Get(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// ListAudit returns recent audit log entries, newest-first.
// GET /api/admin/audit?limit=50&offset=0
func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	entries, err := h.audit.List(r.Context(), opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"limit":   opts.Limit,
		"offset":  opts.Offset,
	})
}
