package settlement

import (
	"testing"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

func TestSplitProportional(t *testing.T) {
	// entryFee=100, two joins, pool=200, 5% fee -> fee=10, distributable=190.
	participants := []domain.Participant{
		{Address: "0xaaa", JoinOrder: 0, Score: 30},
		{Address: "0xbbb", JoinOrder: 1, Score: 70},
	}

	res := Split(1, 200, 5, participants)

	if res.PlatformFee != 10 {
		t.Errorf("platform fee = %d, want 10", res.PlatformFee)
	}
	if res.Distributable != 190 {
		t.Errorf("distributable = %d, want 190", res.Distributable)
	}
	if len(res.Rewards) != 2 {
		t.Fatalf("rewards = %d entries, want 2", len(res.Rewards))
	}
	if res.Rewards[0].Participant != "0xaaa" || res.Rewards[0].Amount != 57 {
		t.Errorf("reward[0] = %+v, want 0xaaa/57", res.Rewards[0])
	}
	if res.Rewards[1].Participant != "0xbbb" || res.Rewards[1].Amount != 133 {
		t.Errorf("reward[1] = %+v, want 0xbbb/133", res.Rewards[1])
	}
	if res.Dust != 0 {
		t.Errorf("dust = %d, want 0 (shares divide evenly)", res.Dust)
	}
}

func TestSplitTotalScoreZero(t *testing.T) {
	participants := []domain.Participant{
		{Address: "0xaaa", Score: 0},
		{Address: "0xbbb", Score: 0},
	}

	res := Split(1, 200, 5, participants)

	if len(res.Rewards) != 0 {
		t.Fatalf("rewards issued with zero total score: %+v", res.Rewards)
	}
	if res.PlatformFee != 10 {
		t.Errorf("platform fee = %d, want 10", res.PlatformFee)
	}
	if res.Stranded != 190 {
		t.Errorf("stranded = %d, want 190", res.Stranded)
	}
}

func TestSplitRewardsNeverExceedDistributable(t *testing.T) {
	tests := []struct {
		name       string
		pool       int64
		feePercent int64
		scores     []int64
	}{
		{"uneven thirds", 100, 5, []int64{1, 1, 1}},
		{"primes", 1000, 7, []int64{13, 17, 19}},
		{"single winner", 500, 20, []int64{0, 0, 42}},
		{"large pool", 1_000_000_000_000, 3, []int64{999, 1, 12345}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var participants []domain.Participant
			for i, s := range tt.scores {
				participants = append(participants, domain.Participant{
					Address:   string(rune('a' + i)),
					JoinOrder: i,
					Score:     s,
				})
			}

			res := Split(1, tt.pool, tt.feePercent, participants)

			var sum int64
			for _, r := range res.Rewards {
				sum += r.Amount
			}
			if sum > res.Distributable {
				t.Errorf("sum of rewards %d exceeds distributable %d", sum, res.Distributable)
			}
			if sum+res.Dust != res.Distributable {
				t.Errorf("sum %d + dust %d != distributable %d", sum, res.Dust, res.Distributable)
			}
			if res.PlatformFee+res.Distributable != tt.pool {
				t.Errorf("fee %d + distributable %d != pool %d", res.PlatformFee, res.Distributable, tt.pool)
			}
		})
	}
}

func TestSplitHugePoolFee(t *testing.T) {
	// pool * feePercent would overflow int64 if multiplied directly.
	const pool = int64(1) << 62

	res := Split(1, pool, 50, []domain.Participant{
		{Address: "0xaaa", JoinOrder: 0, Score: 1},
	})

	if res.PlatformFee != pool/2 {
		t.Errorf("platform fee = %d, want %d", res.PlatformFee, pool/2)
	}
	if len(res.Rewards) != 1 || res.Rewards[0].Amount != pool-pool/2 {
		t.Errorf("rewards = %+v, want sole reward of %d", res.Rewards, pool-pool/2)
	}
}

func TestSplitSkipsZeroScores(t *testing.T) {
	participants := []domain.Participant{
		{Address: "0xaaa", JoinOrder: 0, Score: 0},
		{Address: "0xbbb", JoinOrder: 1, Score: 50},
	}

	res := Split(1, 300, 10, participants)

	if len(res.Rewards) != 1 {
		t.Fatalf("rewards = %d entries, want 1", len(res.Rewards))
	}
	if res.Rewards[0].Participant != "0xbbb" {
		t.Errorf("reward went to %s, want 0xbbb", res.Rewards[0].Participant)
	}
	// Sole scorer takes the whole distributable amount.
	if res.Rewards[0].Amount != 270 {
		t.Errorf("reward = %d, want 270", res.Rewards[0].Amount)
	}
}

func TestSplitJoinOrderPreserved(t *testing.T) {
	participants := []domain.Participant{
		{Address: "0xccc", JoinOrder: 0, Score: 10},
		{Address: "0xaaa", JoinOrder: 1, Score: 10},
		{Address: "0xbbb", JoinOrder: 2, Score: 10},
	}

	res := Split(1, 90, 0, participants)

	want := []string{"0xccc", "0xaaa", "0xbbb"}
	for i, r := range res.Rewards {
		if r.Participant != want[i] {
			t.Errorf("rewards[%d] = %s, want %s (join order)", i, r.Participant, want[i])
		}
	}
}
