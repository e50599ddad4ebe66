package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// RegistryService handles competition creation and question attachment.
type RegistryService struct {
	competitions domain.CompetitionStore
	questions    domain.QuestionStore
	cache        domain.CompetitionCache
	audit        domain.AuditStore
	clock        domain.Clock
	logger       *slog.Logger
	events       emitter
}

// NewRegistryService creates a RegistryService with all required dependencies.
func NewRegistryService(
	competitions domain.CompetitionStore,
	questions domain.QuestionStore,
	cache domain.CompetitionCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	clock domain.Clock,
	logger *slog.Logger,
) *RegistryService {
	return &RegistryService{
		competitions: competitions,
		questions:    questions,
		cache:        cache,
		audit:        audit,
		clock:        clock,
		logger:       logger,
		events:       emitter{bus: bus, logger: logger},
	}
}

// CreateCompetition validates the schedule and registers a new competition.
// It returns domain.ErrInvalidSchedule when the start does not precede the
// end or the start is not in the future.
func (s *RegistryService) CreateCompetition(ctx context.Context, title, description string, entryFee int64, start, end time.Time) (domain.Competition, error) {
	if title == "" {
		return domain.Competition{}, fmt.Errorf("registry_service: %w: empty title", domain.ErrInvalidSchedule)
	}
	if entryFee < 0 {
		return domain.Competition{}, fmt.Errorf("registry_service: %w: negative entry fee", domain.ErrInvalidEntryFee)
	}
	if !start.Before(end) {
		return domain.Competition{}, fmt.Errorf("registry_service: %w: start %s not before end %s",
			domain.ErrInvalidSchedule, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if !start.After(s.clock.Now()) {
		return domain.Competition{}, fmt.Errorf("registry_service: %w: start %s not in the future",
			domain.ErrInvalidSchedule, start.Format(time.RFC3339))
	}

	c := domain.Competition{
		Title:       title,
		Description: description,
		EntryFee:    entryFee,
		StartTime:   start.UTC(),
		EndTime:     end.UTC(),
		Active:      true,
	}

	id, err := s.competitions.Create(ctx, c)
	if err != nil {
		return domain.Competition{}, fmt.Errorf("registry_service: create: %w", err)
	}
	c.ID = id

	s.logger.InfoContext(ctx, "registry_service: competition created",
		slog.Int64("competition_id", id),
		slog.String("title", title),
		slog.Int64("entry_fee", entryFee),
	)

	s.events.emit(ctx, domain.ChannelCompetitions, domain.EventCompetitionCreated, domain.CompetitionCreatedPayload{
		CompetitionID: id,
		Title:         title,
		EntryFee:      entryFee,
		StartTime:     c.StartTime,
		EndTime:       c.EndTime,
	})

	if err := s.audit.Log(ctx, "competition_created", map[string]any{
		"competition_id": id,
		"title":          title,
		"entry_fee":      entryFee,
	}); err != nil {
		s.logger.WarnContext(ctx, "registry_service: audit log failed",
			slog.String("error", err.Error()))
	}

	return c, nil
}

// AttachQuestions appends a validated question batch to a competition.
// Attachment is allowed any time before the competition ends; attaching
// after entrants have joined changes the contest they paid for, so that
// case is logged and recorded in the audit trail rather than refused.
func (s *RegistryService) AttachQuestions(ctx context.Context, competitionID int64, qs []domain.QuestionInput) ([]domain.Question, error) {
	if err := validateQuestions(qs); err != nil {
		return nil, err
	}

	c, err := s.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, fmt.Errorf("registry_service: attach: %w", domain.ErrCompetitionInactive)
	}
	if s.clock.Now().After(c.EndTime) {
		return nil, fmt.Errorf("registry_service: attach: %w", domain.ErrClosed)
	}

	participants, err := s.competitions.Participants(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("registry_service: attach: list participants: %w", err)
	}
	if len(participants) > 0 {
		s.logger.WarnContext(ctx, "registry_service: attaching questions after joins",
			slog.Int64("competition_id", competitionID),
			slog.Int("participants", len(participants)),
			slog.Int("questions", len(qs)),
		)
		if err := s.audit.Log(ctx, "questions_attached_after_joins", map[string]any{
			"competition_id": competitionID,
			"participants":   len(participants),
			"questions":      len(qs),
		}); err != nil {
			s.logger.WarnContext(ctx, "registry_service: audit log failed",
				slog.String("error", err.Error()))
		}
	}

	attached, err := s.questions.Append(ctx, competitionID, qs)
	if err != nil {
		return nil, fmt.Errorf("registry_service: attach: %w", err)
	}

	s.events.emit(ctx, domain.ChannelCompetitions, domain.EventQuestionsAttached, map[string]any{
		"competition_id": competitionID,
		"count":          len(attached),
	})

	return attached, nil
}

// GetCompetition retrieves a competition by id, checking the cache first and
// falling back to the persistent store on a cache miss.
func (s *RegistryService) GetCompetition(ctx context.Context, id int64) (domain.Competition, error) {
	c, err := s.cache.Get(ctx, id)
	if err == nil {
		return c, nil
	}

	c, err = s.competitions.GetByID(ctx, id)
	if err != nil {
		return domain.Competition{}, fmt.Errorf("registry_service: get %d: %w", id, err)
	}

	if cacheErr := s.cache.Set(ctx, c); cacheErr != nil {
		s.logger.WarnContext(ctx, "registry_service: cache set failed",
			slog.Int64("competition_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}

	return c, nil
}

// ListCompetitions returns competitions newest-first.
func (s *RegistryService) ListCompetitions(ctx context.Context, opts domain.ListOpts) ([]domain.Competition, error) {
	out, err := s.competitions.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("registry_service: list: %w", err)
	}
	return out, nil
}

// ListQuestions returns a competition's question set in index order.
func (s *RegistryService) ListQuestions(ctx context.Context, competitionID int64) ([]domain.Question, error) {
	out, err := s.questions.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("registry_service: list questions: %w", err)
	}
	return out, nil
}

// validateQuestions rejects a batch where any entry is structurally invalid.
// The whole batch is refused so a partial attach can never happen.
func validateQuestions(qs []domain.QuestionInput) error {
	if len(qs) == 0 {
		return fmt.Errorf("registry_service: %w: empty batch", domain.ErrMalformedQuestionSet)
	}
	for i, q := range qs {
		if q.Text == "" {
			return fmt.Errorf("registry_service: %w: question %d has empty text", domain.ErrMalformedQuestionSet, i)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("registry_service: %w: question %d has %d options, need at least 2", domain.ErrMalformedQuestionSet, i, len(q.Options))
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("registry_service: %w: question %d correct option %d out of range", domain.ErrMalformedQuestionSet, i, q.CorrectOption)
		}
		if q.Points < 0 {
			return fmt.Errorf("registry_service: %w: question %d has negative points", domain.ErrMalformedQuestionSet, i)
		}
	}
	return nil
}
