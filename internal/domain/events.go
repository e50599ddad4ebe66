package domain

import "time"

// Redis pub/sub channels carrying settlement lifecycle events. The WebSocket
// hub subscribes to all of them and forwards to dashboard clients.
const (
	ChannelCompetitions = "ch:competitions"
	ChannelParticipants = "ch:participants"
	ChannelSettlements  = "ch:settlements"
	ChannelBalances     = "ch:balances"
)

// Event type identifiers, also used for notification filtering.
const (
	EventCompetitionCreated = "competition_created"
	EventQuestionsAttached  = "questions_attached"
	EventParticipantJoined  = "participant_joined"
	EventAnswersGraded      = "answers_graded"
	EventRewardCredited     = "reward_credited"
	EventFeeRouted          = "fee_routed"
	EventWithdrawal         = "withdrawal"
	EventSettingsChanged    = "settings_changed"
)

// Event is the envelope published on the signal bus for every observable
// state change. Payload holds the event-specific struct below.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// CompetitionCreatedPayload announces a new competition.
type CompetitionCreatedPayload struct {
	CompetitionID int64     `json:"competition_id"`
	Title         string    `json:"title"`
	EntryFee      int64     `json:"entry_fee"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

// ParticipantJoinedPayload announces a paid entry.
type ParticipantJoinedPayload struct {
	CompetitionID int64  `json:"competition_id"`
	Participant   string `json:"participant"`
	EntryFee      int64  `json:"entry_fee"`
	Pool          int64  `json:"pool"`
}

// AnswersGradedPayload announces a graded submission.
type AnswersGradedPayload struct {
	CompetitionID int64  `json:"competition_id"`
	Participant   string `json:"participant"`
	Score         int64  `json:"score"`
}

// RewardCreditedPayload announces one settlement credit.
type RewardCreditedPayload struct {
	CompetitionID int64  `json:"competition_id"`
	Participant   string `json:"participant"`
	Amount        int64  `json:"amount"`
}

// FeeRoutedPayload announces the platform fee leaving the pool.
type FeeRoutedPayload struct {
	CompetitionID int64  `json:"competition_id"`
	Amount        int64  `json:"amount"`
	PayoutID      int64  `json:"payout_id"`
	TxHash        string `json:"tx_hash,omitempty"`
}

// WithdrawalPayload announces a balance withdrawal.
type WithdrawalPayload struct {
	Participant string `json:"participant"`
	Amount      int64  `json:"amount"`
	PayoutID    int64  `json:"payout_id"`
	TxHash      string `json:"tx_hash,omitempty"`
}
