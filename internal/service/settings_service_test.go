package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

func newSettingsService(t *testing.T, ceiling int64) (*SettingsService, *memSettingsStore) {
	t.Helper()
	store := newMemSettingsStore(5, rewardAsset)
	svc := NewSettingsService(store, newMemBus(), &memAuditStore{}, testLogger(), ceiling)
	return svc, store
}

func TestSetFeePercent(t *testing.T) {
	svc, store := newSettingsService(t, 20)
	ctx := context.Background()

	tests := []struct {
		name    string
		pct     int64
		wantErr bool
	}{
		{"zero", 0, false},
		{"mid", 10, false},
		{"at ceiling", 20, false},
		{"above ceiling", 21, true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SetFeePercent(ctx, tt.pct)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrFeeTooHigh) {
					t.Errorf("err = %v, want ErrFeeTooHigh", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("set %d: %v", tt.pct, err)
			}
			got, _ := store.Get(ctx)
			if got.FeePercent != tt.pct {
				t.Errorf("stored fee = %d, want %d", got.FeePercent, tt.pct)
			}
		})
	}
}

func TestSetFeePercentRejectedLeavesOld(t *testing.T) {
	svc, store := newSettingsService(t, 20)
	ctx := context.Background()

	if err := svc.SetFeePercent(ctx, 50); err == nil {
		t.Fatal("expected rejection above ceiling")
	}
	got, _ := store.Get(ctx)
	if got.FeePercent != 5 {
		t.Errorf("fee changed by rejected update: %d", got.FeePercent)
	}
}

func TestSetRewardAsset(t *testing.T) {
	svc, store := newSettingsService(t, 20)
	ctx := context.Background()

	if err := svc.SetRewardAsset(ctx, "not-an-address"); !errors.Is(err, domain.ErrInvalidAsset) {
		t.Errorf("err = %v, want ErrInvalidAsset", err)
	}

	const usdc = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
	if err := svc.SetRewardAsset(ctx, usdc); err != nil {
		t.Fatalf("set asset: %v", err)
	}
	got, _ := store.Get(ctx)
	if got.RewardAsset != usdc {
		t.Errorf("stored asset = %s, want %s", got.RewardAsset, usdc)
	}
}
