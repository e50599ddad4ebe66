package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// PayoutStore implements domain.PayoutStore using PostgreSQL. Every external
// transfer attempt gets a row here before the rail is touched.
type PayoutStore struct {
	pool *pgxpool.Pool
}

// NewPayoutStore creates a new PayoutStore backed by the given connection
// pool.
func NewPayoutStore(pool *pgxpool.Pool) *PayoutStore {
	return &PayoutStore{pool: pool}
}

// Create inserts a pending payout and returns its assigned id.
func (s *PayoutStore) Create(ctx context.Context, p domain.Payout) (int64, error) {
	const query = `
		INSERT INTO payouts (kind, account, asset, amount, competition_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		p.Kind, p.Account, p.Asset, p.Amount, p.CompetitionID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: create payout: %w", err)
	}
	return id, nil
}

// MarkSent records a successful transfer.
func (s *PayoutStore) MarkSent(ctx context.Context, id int64, txHash string) error {
	const query = `
		UPDATE payouts SET status = 'sent', tx_hash = $2, updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, txHash)
	if err != nil {
		return fmt.Errorf("postgres: mark payout %d sent: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed records a failed transfer attempt with its reason.
func (s *PayoutStore) MarkFailed(ctx context.Context, id int64, reason string) error {
	const query = `
		UPDATE payouts SET status = 'failed', fail_reason = $2, updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("postgres: mark payout %d failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByStatus returns payouts in the given status, oldest first.
func (s *PayoutStore) ListByStatus(ctx context.Context, status domain.PayoutStatus, opts domain.ListOpts) ([]domain.Payout, error) {
	query := `
		SELECT id, kind, account, asset, amount, competition_id, status,
			tx_hash, fail_reason, created_at, updated_at
		FROM payouts
		WHERE status = $1
		ORDER BY created_at ASC`
	args := []any{status}
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
		return nil, fmt.Errorf("postgres: list payouts: %w", err)
	}
	defer rows.Close()

	var out []domain.Payout
	for rows.Next() {
		var p domain.Payout
		if err := rows.Scan(
			&p.ID, &p.Kind, &p.Account, &p.Asset, &p.Amount, &p.CompetitionID,
			&p.Status, &p.TxHash, &p.FailReason, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan payout: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list payouts rows: %w", err)
	}
	return out, nil
}
