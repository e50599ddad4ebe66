package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// BalanceStore implements domain.BalanceStore using PostgreSQL.
type BalanceStore struct {
	pool *pgxpool.Pool
}

// NewBalanceStore creates a new BalanceStore backed by the given connection
// pool.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// Get returns the participant's balance. A missing row reads as zero.
func (s *BalanceStore) Get(ctx context.Context, participant string) (domain.Balance, error) {
	const query = `SELECT participant, amount, updated_at FROM balances WHERE participant = $1`

	var b domain.Balance
	err := s.pool.QueryRow(ctx, query, participant).Scan(&b.Participant, &b.Amount, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Balance{Participant: participant}, nil
	}
	if err != nil {
		return domain.Balance{}, fmt.Errorf("postgres: get balance %s: %w", participant, err)
	}
	return b, nil
}

// Credit adds amount to the participant's balance, creating the row on
// first credit.
func (s *BalanceStore) Credit(ctx context.Context, participant string, amount int64) error {
	const query = `
		INSERT INTO balances (participant, amount)
		VALUES ($1, $2)
		ON CONFLICT (participant)
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, participant, amount); err != nil {
		return fmt.Errorf("postgres: credit %s: %w", participant, err)
	}
	return nil
}

// WithdrawAll zeroes the balance and inserts the matching pending payout row
// in one transaction: either both commit or the credit stays untouched. The
// WHERE amount > 0 guard makes a concurrent double-withdraw impossible,
// exactly one caller sees the positive amount.
func (s *BalanceStore) WithdrawAll(ctx context.Context, participant, asset string) (domain.Payout, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Payout{}, fmt.Errorf("postgres: begin withdraw tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const zero = `
		UPDATE balances
		SET amount = 0, updated_at = NOW()
		FROM (SELECT participant, amount FROM balances WHERE participant = $1 FOR UPDATE) old
		WHERE balances.participant = old.participant AND old.amount > 0
		RETURNING old.amount`

	var amount int64
	err = tx.QueryRow(ctx, zero, participant).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payout{}, domain.ErrNothingToWithdraw
	}
	if err != nil {
		return domain.Payout{}, fmt.Errorf("postgres: withdraw %s: %w", participant, err)
	}

	p := domain.Payout{
		Kind:    domain.PayoutKindWithdrawal,
		Account: participant,
		Asset:   asset,
		Amount:  amount,
		Status:  domain.PayoutPending,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO payouts (kind, account, asset, amount) VALUES ($1, $2, $3, $4) RETURNING id`,
		p.Kind, p.Account, p.Asset, p.Amount,
	).Scan(&p.ID)
	if err != nil {
		return domain.Payout{}, fmt.Errorf("postgres: record withdrawal %s: %w", participant, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Payout{}, fmt.Errorf("postgres: commit withdraw: %w", err)
	}
	return p, nil
}
