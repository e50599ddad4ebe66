package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

const rewardAsset = "0x2791bca1f2de4661ed88a30c99a7a9449aa84174"

type settlementFixture struct {
	store    *memCompetitionStore
	balances *memBalanceStore
	payouts  *memPayoutStore
	settings *memSettingsStore
	audit    *memAuditStore
	rail     *fakeRail
	clock    *fakeClock
	svc      *SettlementService
}

func newSettlementFixture(t *testing.T, feePercent int64) *settlementFixture {
	t.Helper()

	f := &settlementFixture{
		store:    newMemCompetitionStore(),
		balances: newMemBalanceStore(),
		payouts:  newMemPayoutStore(),
		settings: newMemSettingsStore(feePercent, rewardAsset),
		audit:    &memAuditStore{},
		rail:     &fakeRail{},
		clock:    &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.store.balances = f.balances
	f.svc = NewSettlementService(
		f.store, f.payouts, f.settings, newMemCache(), newMemLocks(),
		f.rail, newMemBus(), f.audit, f.clock, testLogger(),
		"0xtreasury",
	)
	return f
}

// endedCompetition seeds a competition whose window has already closed, with
// the given pool and scored participants.
func (f *settlementFixture) endedCompetition(t *testing.T, pool int64, scores map[string]int64) int64 {
	t.Helper()
	ctx := context.Background()

	start := f.clock.Now().Add(-2 * time.Hour)
	end := f.clock.Now().Add(-time.Hour)
	id, err := f.store.Create(ctx, domain.Competition{
		Title: "ended", EntryFee: 0, StartTime: start, EndTime: end, Active: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Join in deterministic order, then set scores.
	var order []string
	for p := range scores {
		order = append(order, p)
	}
	// Map iteration order is random; sort for stable join order.
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			if order[j] < order[i] {
				order[i], order[j] = order[j], order[i]
			}
		}
	}
	for _, p := range order {
		if err := f.store.Join(ctx, id, p, 0); err != nil {
			t.Fatalf("join %s: %v", p, err)
		}
		if err := f.store.SetScore(ctx, id, p, scores[p]); err != nil {
			t.Fatalf("set score %s: %v", p, err)
		}
	}
	f.store.mu.Lock()
	f.store.competitions[id].RewardPool = pool
	f.store.mu.Unlock()
	return id
}

func TestFinalizeProportionalSplit(t *testing.T) {
	f := newSettlementFixture(t, 5)
	ctx := context.Background()

	// Pool 200 at 5%: fee 10, distributable 190, scores 30/70 -> 57/133.
	id := f.endedCompetition(t, 200, map[string]int64{"0xaaa": 30, "0xbbb": 70})

	res, err := f.svc.Finalize(ctx, id)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if res.PlatformFee != 10 || res.Distributable != 190 {
		t.Errorf("fee/distributable = %d/%d, want 10/190", res.PlatformFee, res.Distributable)
	}

	ba, _ := f.balances.Get(ctx, "0xaaa")
	bb, _ := f.balances.Get(ctx, "0xbbb")
	if ba.Amount != 57 {
		t.Errorf("balance 0xaaa = %d, want 57", ba.Amount)
	}
	if bb.Amount != 133 {
		t.Errorf("balance 0xbbb = %d, want 133", bb.Amount)
	}

	c, _ := f.store.GetByID(ctx, id)
	if c.Active {
		t.Error("competition still active after finalize")
	}
	if c.RewardPool != 0 {
		t.Errorf("pool = %d after finalize, want 0", c.RewardPool)
	}

	// The fee left over the rail to the treasury.
	if f.rail.count() != 1 {
		t.Fatalf("rail transfers = %d, want 1", f.rail.count())
	}
	if f.rail.transfers[0].account != "0xtreasury" || f.rail.transfers[0].amount != 10 {
		t.Errorf("fee transfer = %+v, want 10 to 0xtreasury", f.rail.transfers[0])
	}

	sent, _ := f.payouts.ListByStatus(ctx, domain.PayoutSent, domain.ListOpts{})
	if len(sent) != 1 || sent[0].Kind != domain.PayoutKindFee {
		t.Errorf("sent payouts = %+v, want one platform_fee", sent)
	}

	if !f.audit.has("competition_finalized") {
		t.Error("no competition_finalized audit entry")
	}
}

func TestFinalizeAtMostOnce(t *testing.T) {
	f := newSettlementFixture(t, 5)
	ctx := context.Background()

	id := f.endedCompetition(t, 200, map[string]int64{"0xaaa": 30, "0xbbb": 70})

	if _, err := f.svc.Finalize(ctx, id); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	_, err := f.svc.Finalize(ctx, id)
	if !errors.Is(err, domain.ErrCompetitionInactive) {
		t.Fatalf("second finalize err = %v, want ErrCompetitionInactive", err)
	}

	// Balances must be exactly single-credited.
	ba, _ := f.balances.Get(ctx, "0xaaa")
	if ba.Amount != 57 {
		t.Errorf("balance after double finalize = %d, want 57", ba.Amount)
	}
}

func TestFinalizeBeforeEnd(t *testing.T) {
	f := newSettlementFixture(t, 5)
	ctx := context.Background()

	start := f.clock.Now().Add(-time.Hour)
	end := f.clock.Now().Add(time.Hour)
	id, _ := f.store.Create(ctx, domain.Competition{
		Title: "running", StartTime: start, EndTime: end, Active: true,
	})

	_, err := f.svc.Finalize(ctx, id)
	if !errors.Is(err, domain.ErrNotYetEnded) {
		t.Fatalf("finalize before end err = %v, want ErrNotYetEnded", err)
	}
}

func TestFinalizeZeroTotalScoreStrandsPool(t *testing.T) {
	f := newSettlementFixture(t, 5)
	ctx := context.Background()

	id := f.endedCompetition(t, 200, map[string]int64{"0xaaa": 0, "0xbbb": 0})

	res, err := f.svc.Finalize(ctx, id)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if res.Stranded != 190 {
		t.Errorf("stranded = %d, want 190", res.Stranded)
	}
	if len(res.Rewards) != 0 {
		t.Errorf("rewards issued with zero total score: %+v", res.Rewards)
	}
	ba, _ := f.balances.Get(ctx, "0xaaa")
	if ba.Amount != 0 {
		t.Errorf("balance credited despite zero score: %d", ba.Amount)
	}
	// The fee is still collected.
	if f.rail.count() != 1 || f.rail.transfers[0].amount != 10 {
		t.Errorf("fee not routed on stranded pool")
	}
}

func TestFinalizeRailFailureKeepsSettlement(t *testing.T) {
	f := newSettlementFixture(t, 5)
	ctx := context.Background()

	id := f.endedCompetition(t, 200, map[string]int64{"0xaaa": 30, "0xbbb": 70})
	f.rail.setFail(true)

	res, err := f.svc.Finalize(ctx, id)
	if err != nil {
		t.Fatalf("finalize must survive a rail outage, got: %v", err)
	}
	if res.PlatformFee != 10 {
		t.Errorf("fee = %d, want 10", res.PlatformFee)
	}

	// Internal credits are committed regardless.
	ba, _ := f.balances.Get(ctx, "0xaaa")
	if ba.Amount != 57 {
		t.Errorf("balance = %d, want 57", ba.Amount)
	}

	// The unpaid fee is on record.
	failed, _ := f.payouts.ListByStatus(ctx, domain.PayoutFailed, domain.ListOpts{})
	if len(failed) != 1 || failed[0].Amount != 10 {
		t.Fatalf("failed payouts = %+v, want one of amount 10", failed)
	}
}

func TestFinalizeConcurrentLock(t *testing.T) {
	f := newSettlementFixture(t, 5)
	ctx := context.Background()

	id := f.endedCompetition(t, 200, map[string]int64{"0xaaa": 1})

	unlock, err := f.svc.locks.Acquire(ctx, "finalize:1", time.Minute)
	if err != nil {
		t.Fatalf("pre-acquire: %v", err)
	}
	defer unlock()

	_, err = f.svc.Finalize(ctx, id)
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("finalize with held lock err = %v, want ErrLockHeld", err)
	}
}

func TestFinalizeEndedSweep(t *testing.T) {
	f := newSettlementFixture(t, 0)
	ctx := context.Background()

	ended := f.endedCompetition(t, 100, map[string]int64{"0xaaa": 1})
	start := f.clock.Now().Add(-time.Hour)
	running, _ := f.store.Create(ctx, domain.Competition{
		Title: "running", StartTime: start, EndTime: f.clock.Now().Add(time.Hour), Active: true,
	})

	n, err := f.svc.FinalizeEnded(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("sweep settled %d, want 1", n)
	}

	c, _ := f.store.GetByID(ctx, ended)
	if c.Active {
		t.Error("ended competition still active after sweep")
	}
	c, _ = f.store.GetByID(ctx, running)
	if !c.Active {
		t.Error("running competition finalized by sweep")
	}
}

func TestFinalizeZeroFeeSkipsRail(t *testing.T) {
	f := newSettlementFixture(t, 0)
	ctx := context.Background()

	id := f.endedCompetition(t, 100, map[string]int64{"0xaaa": 10})

	res, err := f.svc.Finalize(ctx, id)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if res.PlatformFee != 0 {
		t.Errorf("fee = %d, want 0", res.PlatformFee)
	}
	if f.rail.count() != 0 {
		t.Errorf("rail called for zero fee")
	}
	ba, _ := f.balances.Get(ctx, "0xaaa")
	if ba.Amount != 100 {
		t.Errorf("sole scorer balance = %d, want whole pool 100", ba.Amount)
	}
}
