package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// ParticipationService defines the methods that the participation handler
// requires from the service layer.
type ParticipationService interface {
	Join(ctx context.Context, competitionID int64, participant string, fee int64) error
	SubmitAnswers(ctx context.Context, competitionID int64, participant string, answers []int) (int64, error)
	Participants(ctx context.Context, competitionID int64) ([]domain.Participant, error)
}

// ParticipationHandler serves entry and answer-submission HTTP endpoints.
type ParticipationHandler struct {
	participation ParticipationService
	logger        *slog.Logger
}

// NewParticipationHandler creates a ParticipationHandler with the given
// service and logger.
func NewParticipationHandler(participation ParticipationService, logger *slog.Logger) *ParticipationHandler {
	return &ParticipationHandler{
		participation: participation,
		logger:        logger,
	}
}

// joinRequest is the JSON body for a paid entry.
type joinRequest struct {
	Participant string `json:"participant"`
	Fee         int64  `json:"fee"`
}

// submitAnswersRequest is the JSON body for an answer submission.
type submitAnswersRequest struct {
	Participant string `json:"participant"`
	Answers     []int  `json:"answers"`
}

// Join registers a paid entry into an open competition.
// POST /api/competitions/{id}/join
func (h *ParticipationHandler) Join(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid competition id")
		return
	}

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Participant == "" {
		writeError(w, http.StatusBadRequest, "participant is required")
		return
	}

	if err := h.participation.Join(r.Context(), id, req.Participant, req.Fee); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"competition_id": id,
		"participant":    req.Participant,
		"fee":            req.Fee,
	})
}

// SubmitAnswers grades a submission and records the score. Resubmission
// before close overwrites the previous score.
// POST /api/competitions/{id}/answers
func (h *ParticipationHandler) SubmitAnswers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid competition id")
		return
	}

	var req submitAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Participant == "" {
		writeError(w, http.StatusBadRequest, "participant is required")
		return
	}

	score, err := h.participation.SubmitAnswers(r.Context(), id, req.Participant, req.Answers)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"competition_id": id,
		"participant":    req.Participant,
		"score":          score,
	})
}

// ListParticipants returns all entrants of a competition in join order.
// GET /api/competitions/{id}/participants
func (h *ParticipationHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid competition id")
		return
	}

	ps, err := h.participation.Participants(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if ps == nil {
		ps = []domain.Participant{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"participants": ps})
}
