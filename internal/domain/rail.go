package domain

import "context"

// PaymentRail moves funds out of the platform: platform fees to the
// treasury and withdrawals to participants. It is the one collaborator that
// can fail for reasons outside the engine's control, so every call happens
// AFTER the internal ledger has committed; a failure leaves the amount
// recorded as owed in the payouts table, never lost.
type PaymentRail interface {
	// TransferOut sends amount of the given asset to account and returns a
	// transaction reference.
	TransferOut(ctx context.Context, asset, account string, amount int64) (txHash string, err error)
}
