package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Chain.PrivateKey = "0xabc"
	cfg.Chain.TreasuryAddress = "0x1111111111111111111111111111111111111111"
	cfg.Server.AdminKey = "secret"
	return cfg
}

func TestValidateDefaultsNeedCredentials(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure without chain key and admin key")
	}
	if !strings.Contains(err.Error(), "chain:") {
		t.Errorf("error does not mention chain section: %v", err)
	}
	if !strings.Contains(err.Error(), "admin_key") {
		t.Errorf("error does not mention admin_key: %v", err)
	}
}

func TestValidateOK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateFeeBounds(t *testing.T) {
	tests := []struct {
		name    string
		fee     int64
		ceiling int64
		wantErr bool
	}{
		{"fee within ceiling", 5, 20, false},
		{"fee at ceiling", 20, 20, false},
		{"fee above ceiling", 21, 20, true},
		{"negative fee", -1, 20, true},
		{"ceiling above 100", 5, 101, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Settlement.FeePercent = tt.fee
			cfg.Settlement.FeeCeilingPercent = tt.ceiling
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("fee=%d ceiling=%d: expected error, got nil", tt.fee, tt.ceiling)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("fee=%d ceiling=%d: unexpected error: %v", tt.fee, tt.ceiling, err)
			}
		})
	}
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "turbo"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Fatalf("expected unknown mode error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUIZPOOL_POSTGRES_HOST", "db.internal")
	t.Setenv("QUIZPOOL_SETTLEMENT_FEE_PERCENT", "7")
	t.Setenv("QUIZPOOL_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("QUIZPOOL_SETTLEMENT_ARCHIVE_INTERVAL", "6h")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("postgres host = %q, want db.internal", cfg.Postgres.Host)
	}
	if cfg.Settlement.FeePercent != 7 {
		t.Errorf("fee percent = %d, want 7", cfg.Settlement.FeePercent)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("cors origins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	if cfg.Settlement.ArchiveInterval.String() != "6h0m0s" {
		t.Errorf("archive interval = %s, want 6h", cfg.Settlement.ArchiveInterval)
	}
}
