package domain

// RewardCredit is one participant's share of a settlement.
type RewardCredit struct {
	Participant string `json:"participant"`
	Score       int64  `json:"score"`
	Amount      int64  `json:"amount"`
}

// SettlementResult is the outcome of finalizing one competition. Rewards are
// ordered by join order. Dust is the floor-division remainder left inside
// the distributable amount after all shares are credited; Stranded is the
// whole distributable amount when nobody scored. Both are reported rather
// than redistributed.
type SettlementResult struct {
	CompetitionID int64          `json:"competition_id"`
	Pool          int64          `json:"pool"`
	FeePercent    int64          `json:"fee_percent"`
	PlatformFee   int64          `json:"platform_fee"`
	Distributable int64          `json:"distributable"`
	TotalScore    int64          `json:"total_score"`
	Rewards       []RewardCredit `json:"rewards"`
	Dust          int64          `json:"dust"`
	Stranded      int64          `json:"stranded"`
}
