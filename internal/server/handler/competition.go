package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// CompetitionService defines the methods that the competition handler requires
// from the service layer. It is declared locally so the handler package does
// not depend on the concrete service implementation.
type CompetitionService interface {
	CreateCompetition(ctx context.Context, title, description string, entryFee int64, start, end time.Time) (domain.Competition, error)
	GetCompetition(ctx context.Context, id int64) (domain.Competition, error)
	ListCompetitions(ctx context.Context, opts domain.ListOpts) ([]domain.Competition, error)
	AttachQuestions(ctx context.Context, competitionID int64, qs []domain.QuestionInput) ([]domain.Question, error)
	ListQuestions(ctx context.Context, competitionID int64) ([]domain.Question, error)
}

// CompetitionHandler serves competition registry HTTP endpoints.
type CompetitionHandler struct {
	registry CompetitionService
	clock    domain.Clock
	logger   *slog.Logger
}

// NewCompetitionHandler creates a CompetitionHandler with the given service
// and logger.
func NewCompetitionHandler(registry CompetitionService, clock domain.Clock, logger *slog.Logger) *CompetitionHandler {
	return &CompetitionHandler{
		registry: registry,
		clock:    clock,
		logger:   logger,
	}
}

// competitionView decorates a competition with its derived lifecycle status.
type competitionView struct {
	domain.Competition
	Status domain.CompetitionStatus `json:"status"`
}

// listCompetitionsResponse wraps the list endpoint output with metadata.
type listCompetitionsResponse struct {
	Competitions []competitionView `json:"competitions"`
	Limit        int               `json:"limit"`
	Offset       int               `json:"offset"`
}

// createCompetitionRequest is the JSON body for competition creation.
type createCompetitionRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EntryFee    int64     `json:"entry_fee"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// questionView is the public projection of a question. The correct option
// stays server-side until the competition is settled.
type questionView struct {
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Points  int64    `json:"points"`
}

// ListCompetitions returns competitions newest-first with pagination.
// GET /api/competitions?limit=50&offset=0
func (h *CompetitionHandler) ListCompetitions(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	comps, err := h.registry.ListCompetitions(r.Context(), opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	now := h.clock.Now()
	views := make([]competitionView, 0, len(comps))
	for _, c := range comps {
		views = append(views, competitionView{Competition: c, Status: c.StatusAt(now)})
	}

	writeJSON(w, http.StatusOK, listCompetitionsResponse{
		Competitions: views,
		Limit:        opts.Limit,
		Offset:       opts.Offset,
	})
}

// GetCompetition returns a single competition by its ID.
// GET /api/competitions/{id}
func (h *CompetitionHandler) GetCompetition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid competition id")
		return
	}

	c, err := h.registry.GetCompetition(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, competitionView{Competition: c, Status: c.StatusAt(h.clock.Now())})
}

// CreateCompetition registers a new competition. Admin only.
// POST /api/competitions
func (h *CompetitionHandler) CreateCompetition(w http.ResponseWriter, r *http.Request) {
	var req createCompetitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	c, err := h.registry.CreateCompetition(r.Context(), req.Title, req.Description, req.EntryFee, req.StartTime, req.EndTime)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, competitionView{Competition: c, Status: c.StatusAt(h.clock.Now())})
}

// ListQuestions returns a competition's question set in index order, without
// the correct options.
// GET /api/competitions/{id}/questions
func (h *CompetitionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid competition id")
		return
	}

	// Resolve the competition first so missing IDs come back 404 instead of
	// an empty list.
	if _, err := h.registry.GetCompetition(r.Context(), id); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	qs, err := h.registry.ListQuestions(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	views := make([]questionView, 0, len(qs))
	for _, q := range qs {
		views = append(views, questionView{
			Index:   q.Index,
			Text:    q.Text,
			Options: q.Options,
			Points:  q.Points,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"questions": views})
}

// AttachQuestions appends a question batch to a competition. Admin only.
// POST /api/competitions/{id}/questions
func (h *CompetitionHandler) AttachQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid competition id")
		return
	}

	var req struct {
		Questions []domain.QuestionInput `json:"questions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	attached, err := h.registry.AttachQuestions(r.Context(), id, req.Questions)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"competition_id": id,
		"attached":       len(attached),
	})
}
