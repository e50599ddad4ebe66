package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for duplicate-key inserts.
const uniqueViolation = "23505"

// CompetitionStore implements domain.CompetitionStore using PostgreSQL.
type CompetitionStore struct {
	pool *pgxpool.Pool
}

// NewCompetitionStore creates a new CompetitionStore backed by the given
// connection pool.
func NewCompetitionStore(pool *pgxpool.Pool) *CompetitionStore {
	return &CompetitionStore{pool: pool}
}

const competitionCols = `id, title, description, entry_fee, reward_pool,
	start_time, end_time, active, created_at, finalized_at`

func scanCompetition(row pgx.Row) (domain.Competition, error) {
	var c domain.Competition
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.EntryFee, &c.RewardPool,
		&c.StartTime, &c.EndTime, &c.Active, &c.CreatedAt, &c.FinalizedAt,
	)
	return c, err
}

// Create inserts a new competition and returns its assigned id.
func (s *CompetitionStore) Create(ctx context.Context, c domain.Competition) (int64, error) {
	const query = `
		INSERT INTO competitions (title, description, entry_fee, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		c.Title, c.Description, c.EntryFee, c.StartTime, c.EndTime,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: create competition: %w", err)
	}
	return id, nil
}

// GetByID fetches one competition.
func (s *CompetitionStore) GetByID(ctx context.Context, id int64) (domain.Competition, error) {
	query := `SELECT ` + competitionCols + ` FROM competitions WHERE id = $1`

	c, err := scanCompetition(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Competition{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Competition{}, fmt.Errorf("postgres: get competition %d: %w", id, err)
	}
	return c, nil
}

// List returns competitions newest-first with pagination.
func (s *CompetitionStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Competition, error) {
	query := `SELECT ` + competitionCols + ` FROM competitions ORDER BY created_at DESC`
	args := []any{}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list competitions: %w", err)
	}
	defer rows.Close()

	var out []domain.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan competition: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list competitions rows: %w", err)
	}
	return out, nil
}

// ListFinalizedBefore returns finalized competitions whose end time is
// strictly before the cutoff.
func (s *CompetitionStore) ListFinalizedBefore(ctx context.Context, before time.Time) ([]domain.Competition, error) {
	query := `SELECT ` + competitionCols + `
		FROM competitions
		WHERE active = FALSE AND end_time < $1
		ORDER BY end_time ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list finalized competitions: %w", err)
	}
	defer rows.Close()

	var out []domain.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan competition: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list finalized competitions rows: %w", err)
	}
	return out, nil
}

// Join inserts the participant and grows the reward pool by the entry fee in
// one transaction. The competition row is locked first so the pool increment
// and the join_order assignment cannot race.
func (s *CompetitionStore) Join(ctx context.Context, competitionID int64, participant string, fee int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin join tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var active bool
	err = tx.QueryRow(ctx,
		`SELECT active FROM competitions WHERE id = $1 FOR UPDATE`,
		competitionID,
	).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("postgres: lock competition %d: %w", competitionID, err)
	}
	if !active {
		return domain.ErrCompetitionInactive
	}

	var joinOrder int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM participants WHERE competition_id = $1`,
		competitionID,
	).Scan(&joinOrder)
	if err != nil {
		return fmt.Errorf("postgres: count participants: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO participants (competition_id, address, join_order) VALUES ($1, $2, $3)`,
		competitionID, participant, joinOrder,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyJoined
		}
		return fmt.Errorf("postgres: insert participant: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE competitions SET reward_pool = reward_pool + $2 WHERE id = $1`,
		competitionID, fee,
	)
	if err != nil {
		return fmt.Errorf("postgres: grow reward pool: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit join: %w", err)
	}
	return nil
}

// GetParticipant fetches one participant row.
func (s *CompetitionStore) GetParticipant(ctx context.Context, competitionID int64, participant string) (domain.Participant, error) {
	const query = `
		SELECT competition_id, address, join_order, score, graded, joined_at
		FROM participants
		WHERE competition_id = $1 AND address = $2`

	var p domain.Participant
	err := s.pool.QueryRow(ctx, query, competitionID, participant).Scan(
		&p.CompetitionID, &p.Address, &p.JoinOrder, &p.Score, &p.Graded, &p.JoinedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrNotAParticipant
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("postgres: get participant: %w", err)
	}
	return p, nil
}

// Participants returns all entrants in join order.
func (s *CompetitionStore) Participants(ctx context.Context, competitionID int64) ([]domain.Participant, error) {
	const query = `
		SELECT competition_id, address, join_order, score, graded, joined_at
		FROM participants
		WHERE competition_id = $1
		ORDER BY join_order ASC`

	rows, err := s.pool.Query(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list participants: %w", err)
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.CompetitionID, &p.Address, &p.JoinOrder, &p.Score, &p.Graded, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan participant: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list participants rows: %w", err)
	}
	return out, nil
}

// SetScore overwrites the participant's recorded score. The update joins the
// competition row and requires active, so a grade can never land after a
// concurrent finalization has consumed the scores.
func (s *CompetitionStore) SetScore(ctx context.Context, competitionID int64, participant string, score int64) error {
	const query = `
		UPDATE participants SET score = $3, graded = TRUE
		FROM competitions
		WHERE competitions.id = participants.competition_id
		  AND participants.competition_id = $1 AND participants.address = $2
		  AND competitions.active`

	tag, err := s.pool.Exec(ctx, query, competitionID, participant, score)
	if err != nil {
		return fmt.Errorf("postgres: set score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var active bool
		err := s.pool.QueryRow(ctx,
			`SELECT active FROM competitions WHERE id = $1`, competitionID,
		).Scan(&active)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("postgres: check competition %d: %w", competitionID, err)
		}
		if !active {
			return domain.ErrCompetitionInactive
		}
		return domain.ErrNotAParticipant
	}
	return nil
}

// Finalize deactivates the competition, zeroes its pool, and credits every
// reward to the balance ledger in one transaction. The conditional UPDATE on
// active makes finalization at-most-once even if two workers race past the
// distributed lock.
func (s *CompetitionStore) Finalize(ctx context.Context, competitionID int64, credits []domain.RewardCredit) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin finalize tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE competitions
		SET active = FALSE, reward_pool = 0, finalized_at = NOW()
		WHERE id = $1 AND active`,
		competitionID,
	)
	if err != nil {
		return fmt.Errorf("postgres: deactivate competition %d: %w", competitionID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM competitions WHERE id = $1)`,
			competitionID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check competition %d: %w", competitionID, err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrCompetitionInactive
	}

	const credit = `
		INSERT INTO balances (participant, amount)
		VALUES ($1, $2)
		ON CONFLICT (participant)
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()`
	for _, rc := range credits {
		if rc.Amount <= 0 {
			continue
		}
		if _, err := tx.Exec(ctx, credit, rc.Participant, rc.Amount); err != nil {
			return fmt.Errorf("postgres: credit %s: %w", rc.Participant, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit finalize: %w", err)
	}
	return nil
}
