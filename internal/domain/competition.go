package domain

import "time"

// CompetitionStatus represents the lifecycle state of a competition. Only
// the Scheduled/Open/Closed boundary is derived from the clock; Finalized is
// the one stored, terminal transition.
type CompetitionStatus string

const (
	StatusScheduled CompetitionStatus = "scheduled"
	StatusOpen      CompetitionStatus = "open"
	StatusClosed    CompetitionStatus = "closed"
	StatusFinalized CompetitionStatus = "finalized"
)

// Competition is a pooled-reward knowledge competition. The reward pool
// accumulates exactly EntryFee per join and is disbursed exactly once at
// finalization. Records are never deleted; finalization flips Active and
// zeroes the pool, leaving the row as an audit trail.
type Competition struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EntryFee    int64     `json:"entry_fee"`
	RewardPool  int64     `json:"reward_pool"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
}

// StatusAt derives the lifecycle state at the given instant.
func (c Competition) StatusAt(now time.Time) CompetitionStatus {
	if !c.Active {
		return StatusFinalized
	}
	if now.Before(c.StartTime) {
		return StatusScheduled
	}
	if now.After(c.EndTime) {
		return StatusClosed
	}
	return StatusOpen
}

// Participant is a single entrant in one competition. JoinOrder preserves
// insertion order; it has no effect on the split but keeps iteration and
// event emission deterministic. Score stays zero until graded, so the engine
// cannot distinguish "scored zero" from "never submitted".
type Participant struct {
	CompetitionID int64     `json:"competition_id"`
	Address       string    `json:"address"`
	JoinOrder     int       `json:"join_order"`
	Score         int64     `json:"score"`
	Graded        bool      `json:"graded"`
	JoinedAt      time.Time `json:"joined_at"`
}
