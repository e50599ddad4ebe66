package domain

import "time"

// Balance is a participant's accumulated withdrawable credit across all
// competitions. Credits only grow; the single decreasing operation is the
// atomic read-and-zero performed by withdrawal.
type Balance struct {
	Participant string    `json:"participant"`
	Amount      int64     `json:"amount"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PayoutKind distinguishes the business reason for an external transfer.
type PayoutKind string

const (
	PayoutKindFee        PayoutKind = "platform_fee"
	PayoutKindWithdrawal PayoutKind = "withdrawal"
)

// PayoutStatus tracks the lifecycle of an external transfer attempt.
type PayoutStatus string

const (
	PayoutPending PayoutStatus = "pending"
	PayoutSent    PayoutStatus = "sent"
	PayoutFailed  PayoutStatus = "failed"
)

// Payout records one external transfer attempt on the payment rail. The
// internal ledger commits before the transfer is attempted; a failed
// transfer leaves the row in failed status as the record of what is still
// owed, it never rolls back internal state.
type Payout struct {
	ID            int64        `json:"id"`
	Kind          PayoutKind   `json:"kind"`
	Account       string       `json:"account"`
	Asset         string       `json:"asset"`
	Amount        int64        `json:"amount"`
	CompetitionID *int64       `json:"competition_id,omitempty"`
	Status        PayoutStatus `json:"status"`
	TxHash        string       `json:"tx_hash,omitempty"`
	FailReason    string       `json:"fail_reason,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
