package domain

import "time"

// Settings is the administrator-mutable platform configuration. FeePercent
// is bounded by the config-level ceiling at write time; RewardAsset is the
// ERC-20 contract used by the payment rail for fee routing and withdrawals.
type Settings struct {
	FeePercent  int64     `json:"fee_percent"`
	RewardAsset string    `json:"reward_asset"`
	UpdatedAt   time.Time `json:"updated_at"`
}
