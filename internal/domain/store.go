package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// CompetitionStore persists competitions and their participants. Join and
// Finalize are the two multi-row mutations; implementations must make each
// one all-or-nothing.
type CompetitionStore interface {
	Create(ctx context.Context, c Competition) (int64, error)
	GetByID(ctx context.Context, id int64) (Competition, error)
	List(ctx context.Context, opts ListOpts) ([]Competition, error)
	// ListFinalizedBefore returns finalized competitions whose end time is
	// strictly before the cutoff, for cold-storage archival.
	ListFinalizedBefore(ctx context.Context, before time.Time) ([]Competition, error)

	// Join inserts the participant and adds fee to the reward pool in one
	// transaction. Returns ErrAlreadyJoined if the participant row exists
	// and ErrCompetitionInactive if the competition is no longer active.
	Join(ctx context.Context, competitionID int64, participant string, fee int64) error
	GetParticipant(ctx context.Context, competitionID int64, participant string) (Participant, error)
	// Participants returns all entrants in join order.
	Participants(ctx context.Context, competitionID int64) ([]Participant, error)
	// SetScore overwrites the participant's recorded score (last submission
	// before close wins). Returns ErrCompetitionInactive once the
	// competition is finalized: scores are immutable after settlement.
	SetScore(ctx context.Context, competitionID int64, participant string, score int64) error

	// Finalize applies a computed settlement in one transaction: credits
	// every reward to the balance ledger, marks the competition inactive,
	// and zeroes its pool. Returns ErrCompetitionInactive when the
	// competition was already finalized, leaving all balances untouched.
	Finalize(ctx context.Context, competitionID int64, credits []RewardCredit) error
}

// QuestionStore persists competition question sets.
type QuestionStore interface {
	// Append attaches questions with local indexes continuing from the
	// current question count, in one transaction.
	Append(ctx context.Context, competitionID int64, qs []QuestionInput) ([]Question, error)
	ListByCompetition(ctx context.Context, competitionID int64) ([]Question, error)
	Count(ctx context.Context, competitionID int64) (int, error)
}

// BalanceStore persists participant credit. Credit is invoked only from
// inside CompetitionStore.Finalize's transaction path or by tests.
type BalanceStore interface {
	Get(ctx context.Context, participant string) (Balance, error)
	Credit(ctx context.Context, participant string, amount int64) error
	// WithdrawAll zeroes the balance and records the amount as a pending
	// withdrawal payout in the same transaction, so a reduced credit is
	// always backed by a payout row. Returns ErrNothingToWithdraw when the
	// balance is zero or absent.
	WithdrawAll(ctx context.Context, participant, asset string) (Payout, error)
}

// PayoutStore records every external transfer attempt.
type PayoutStore interface {
	Create(ctx context.Context, p Payout) (int64, error)
	MarkSent(ctx context.Context, id int64, txHash string) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	ListByStatus(ctx context.Context, status PayoutStatus, opts ListOpts) ([]Payout, error)
}

// SettingsStore persists the administrator-mutable platform settings.
type SettingsStore interface {
	Get(ctx context.Context) (Settings, error)
	SetFeePercent(ctx context.Context, pct int64) error
	SetRewardAsset(ctx context.Context, asset string) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	// ListBefore returns entries created strictly before the cutoff, for
	// archival.
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
}
