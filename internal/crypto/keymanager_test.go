package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey("0x"+testKey, "hunter2")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got != testKey {
		t.Errorf("round trip = %s, want %s", got, testKey)
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKey, "right")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Fatal("decrypt succeeded with wrong password")
	}
}

func TestEncryptRejectsBadKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
		pass string
	}{
		{"empty password", testKey, ""},
		{"not hex", "zz" + testKey[2:], "pw"},
		{"short key", "abcd", "pw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncryptKey(tt.key, tt.pass); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadKey(t *testing.T) {
	t.Run("raw key wins", func(t *testing.T) {
		got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKey})
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got != testKey {
			t.Errorf("got %s, want %s", got, testKey)
		}
	})

	t.Run("encrypted file", func(t *testing.T) {
		blob, err := EncryptKey(testKey, "pw")
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		path := filepath.Join(t.TempDir(), "treasury.json")
		if err := os.WriteFile(path, blob, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}

		got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got != testKey {
			t.Errorf("got %s, want %s", got, testKey)
		}
	})

	t.Run("no source", func(t *testing.T) {
		_, err := LoadKey(KeyConfig{})
		if err == nil || !strings.Contains(err.Error(), "no private key source") {
			t.Fatalf("err = %v, want no-source error", err)
		}
	})
}
