package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/quizpool/internal/domain"
	"github.com/alanyoungcy/quizpool/internal/settlement"
)

// ParticipationService handles paid entry and answer submission.
type ParticipationService struct {
	competitions domain.CompetitionStore
	questions    domain.QuestionStore
	cache        domain.CompetitionCache
	audit        domain.AuditStore
	clock        domain.Clock
	logger       *slog.Logger
	events       emitter
}

// NewParticipationService creates a ParticipationService with all required
// dependencies.
func NewParticipationService(
	competitions domain.CompetitionStore,
	questions domain.QuestionStore,
	cache domain.CompetitionCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	clock domain.Clock,
	logger *slog.Logger,
) *ParticipationService {
	return &ParticipationService{
		competitions: competitions,
		questions:    questions,
		cache:        cache,
		audit:        audit,
		clock:        clock,
		logger:       logger,
		events:       emitter{bus: bus, logger: logger},
	}
}

// gate fetches the competition and checks that the submission window is
// open at the current instant.
func (s *ParticipationService) gate(ctx context.Context, competitionID int64) (domain.Competition, error) {
	c, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		return domain.Competition{}, fmt.Errorf("participation_service: get %d: %w", competitionID, err)
	}

	switch c.StatusAt(s.clock.Now()) {
	case domain.StatusFinalized:
		return domain.Competition{}, fmt.Errorf("participation_service: %w", domain.ErrCompetitionInactive)
	case domain.StatusScheduled:
		return domain.Competition{}, fmt.Errorf("participation_service: %w", domain.ErrNotOpenYet)
	case domain.StatusClosed:
		return domain.Competition{}, fmt.Errorf("participation_service: %w", domain.ErrClosed)
	}
	return c, nil
}

// Join registers a paid entry. The offered fee must match the competition's
// entry fee exactly; the fee then joins the reward pool atomically with the
// participant row.
func (s *ParticipationService) Join(ctx context.Context, competitionID int64, participant string, fee int64) error {
	if participant == "" {
		return fmt.Errorf("participation_service: %w: empty participant", domain.ErrNotAParticipant)
	}

	c, err := s.gate(ctx, competitionID)
	if err != nil {
		return err
	}

	if fee != c.EntryFee {
		return fmt.Errorf("participation_service: %w: offered %d, entry fee is %d",
			domain.ErrWrongFee, fee, c.EntryFee)
	}

	if err := s.competitions.Join(ctx, competitionID, participant, fee); err != nil {
		return fmt.Errorf("participation_service: join: %w", err)
	}

	// The pool changed; drop the cached copy.
	if err := s.cache.Invalidate(ctx, competitionID); err != nil {
		s.logger.WarnContext(ctx, "participation_service: cache invalidate failed",
			slog.Int64("competition_id", competitionID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "participation_service: participant joined",
		slog.Int64("competition_id", competitionID),
		slog.String("participant", participant),
		slog.Int64("fee", fee),
	)

	s.events.emit(ctx, domain.ChannelParticipants, domain.EventParticipantJoined, domain.ParticipantJoinedPayload{
		CompetitionID: competitionID,
		Participant:   participant,
		EntryFee:      fee,
		Pool:          c.RewardPool + fee,
	})

	if err := s.audit.Log(ctx, "participant_joined", map[string]any{
		"competition_id": competitionID,
		"participant":    participant,
		"fee":            fee,
	}); err != nil {
		s.logger.WarnContext(ctx, "participation_service: audit log failed",
			slog.String("error", err.Error()))
	}

	return nil
}

// SubmitAnswers grades a submission against the competition's question set
// and records the score. Resubmission before close overwrites the previous
// score; the last submission wins.
func (s *ParticipationService) SubmitAnswers(ctx context.Context, competitionID int64, participant string, answers []int) (int64, error) {
	if _, err := s.gate(ctx, competitionID); err != nil {
		return 0, err
	}

	if _, err := s.competitions.GetParticipant(ctx, competitionID, participant); err != nil {
		return 0, fmt.Errorf("participation_service: submit: %w", err)
	}

	qs, err := s.questions.ListByCompetition(ctx, competitionID)
	if err != nil {
		return 0, fmt.Errorf("participation_service: submit: list questions: %w", err)
	}
	if len(answers) != len(qs) {
		return 0, fmt.Errorf("participation_service: %w: got %d answers for %d questions",
			domain.ErrAnswerCountMismatch, len(answers), len(qs))
	}

	score := settlement.Grade(qs, answers)

	if err := s.competitions.SetScore(ctx, competitionID, participant, score); err != nil {
		return 0, fmt.Errorf("participation_service: submit: %w", err)
	}

	s.logger.InfoContext(ctx, "participation_service: answers graded",
		slog.Int64("competition_id", competitionID),
		slog.String("participant", participant),
		slog.Int64("score", score),
	)

	s.events.emit(ctx, domain.ChannelParticipants, domain.EventAnswersGraded, domain.AnswersGradedPayload{
		CompetitionID: competitionID,
		Participant:   participant,
		Score:         score,
	})

	if err := s.audit.Log(ctx, "answers_submitted", map[string]any{
		"competition_id": competitionID,
		"participant":    participant,
		"score":          score,
	}); err != nil {
		s.logger.WarnContext(ctx, "participation_service: audit log failed",
			slog.String("error", err.Error()))
	}

	return score, nil
}

// Participants returns all entrants in join order.
func (s *ParticipationService) Participants(ctx context.Context, competitionID int64) ([]domain.Participant, error) {
	out, err := s.competitions.Participants(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("participation_service: participants: %w", err)
	}
	return out, nil
}
