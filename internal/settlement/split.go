package settlement

import (
	"math/big"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// Split computes the settlement for a pool given the fee percentage and the
// participants in join order.
//
// The platform fee is floor(pool * feePercent / 100); each participant with
// a positive score receives floor(distributable * score / totalScore). Both
// divisions floor, so the sum of rewards never exceeds the distributable
// amount; the remainder is reported as Dust. When the total score is zero
// no rewards are issued and the whole distributable amount is reported as
// Stranded. Split never mutates anything; the caller commits the result.
func Split(competitionID, pool, feePercent int64, participants []domain.Participant) domain.SettlementResult {
	// pool * feePercent can overflow int64 for large pools, so the product
	// is taken in big.Int. The quotient always fits: it is bounded by pool.
	feeBig := new(big.Int).Mul(big.NewInt(pool), big.NewInt(feePercent))
	feeBig.Quo(feeBig, big.NewInt(100))
	fee := feeBig.Int64()
	distributable := pool - fee

	res := domain.SettlementResult{
		CompetitionID: competitionID,
		Pool:          pool,
		FeePercent:    feePercent,
		PlatformFee:   fee,
		Distributable: distributable,
	}

	var totalScore int64
	for _, p := range participants {
		totalScore += p.Score
	}
	res.TotalScore = totalScore

	if totalScore == 0 {
		res.Stranded = distributable
		return res
	}

	// distributable * score can overflow int64 for large pools, so the
	// product is taken in big.Int. The quotient always fits: it is bounded
	// by distributable.
	dist := big.NewInt(distributable)
	total := big.NewInt(totalScore)

	var credited int64
	for _, p := range participants {
		if p.Score <= 0 {
			continue
		}
		share := new(big.Int).Mul(dist, big.NewInt(p.Score))
		share.Quo(share, total)
		amount := share.Int64()
		credited += amount
		res.Rewards = append(res.Rewards, domain.RewardCredit{
			Participant: p.Address,
			Score:       p.Score,
			Amount:      amount,
		})
	}

	res.Dust = distributable - credited
	return res
}
