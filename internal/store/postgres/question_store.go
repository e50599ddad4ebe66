package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// QuestionStore implements domain.QuestionStore using PostgreSQL. Options
// are stored as a JSONB array alongside the correct index.
type QuestionStore struct {
	pool *pgxpool.Pool
}

// NewQuestionStore creates a new QuestionStore backed by the given
// connection pool.
func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

// Append attaches questions to a competition, continuing the local index
// sequence from the current count, in one transaction.
func (s *QuestionStore) Append(ctx context.Context, competitionID int64, qs []domain.QuestionInput) ([]domain.Question, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin append tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var base int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE competition_id = $1`,
		competitionID,
	).Scan(&base)
	if err != nil {
		return nil, fmt.Errorf("postgres: count questions: %w", err)
	}

	const insert = `
		INSERT INTO questions (competition_id, idx, text, options, correct_option, points)
		VALUES ($1, $2, $3, $4, $5, $6)`

	out := make([]domain.Question, 0, len(qs))
	for i, in := range qs {
		optionsJSON, err := json.Marshal(in.Options)
		if err != nil {
			return nil, fmt.Errorf("postgres: marshal options: %w", err)
		}
		idx := base + i
		if _, err := tx.Exec(ctx, insert,
			competitionID, idx, in.Text, optionsJSON, in.CorrectOption, in.Points,
		); err != nil {
			return nil, fmt.Errorf("postgres: insert question %d: %w", idx, err)
		}
		out = append(out, domain.Question{
			CompetitionID: competitionID,
			Index:         idx,
			Text:          in.Text,
			Options:       in.Options,
			CorrectOption: in.CorrectOption,
			Points:        in.Points,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: commit append: %w", err)
	}
	return out, nil
}

// ListByCompetition returns the full question set in index order.
func (s *QuestionStore) ListByCompetition(ctx context.Context, competitionID int64) ([]domain.Question, error) {
	const query = `
		SELECT competition_id, idx, text, options, correct_option, points
		FROM questions
		WHERE competition_id = $1
		ORDER BY idx ASC`

	rows, err := s.pool.Query(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var q domain.Question
		var optionsJSON []byte
		if err := rows.Scan(&q.CompetitionID, &q.Index, &q.Text, &optionsJSON, &q.CorrectOption, &q.Points); err != nil {
			return nil, fmt.Errorf("postgres: scan question: %w", err)
		}
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal options: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list questions rows: %w", err)
	}
	return out, nil
}

// Count returns the number of questions attached to a competition.
func (s *QuestionStore) Count(ctx context.Context, competitionID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE competition_id = $1`,
		competitionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count questions: %w", err)
	}
	return n, nil
}
