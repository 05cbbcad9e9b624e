package password

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

const benchPassword = "Str0ng!Passw0rd"

// Login cost is dominated by Verify; keep an eye on it when tuning ARGON2_*.
func BenchmarkVerify_Argon2id(b *testing.B) {
	cfg := DefaultConfig()
	h, err := cfg.Hash(benchPassword)
	if err != nil {
		b.Fatalf("Hash error: %v", err)
	}

	b.ResetTimer()
	for b.Loop() {
		if ok, err := cfg.Verify(h, benchPassword); err != nil || !ok {
			b.Fatalf("Verify failed: ok=%v err=%v", ok, err)
		}
	}
}

func BenchmarkVerify_LegacyBcrypt(b *testing.B) {
	cfg := DefaultConfig()
	raw, err := bcrypt.GenerateFromPassword([]byte(benchPassword), bcrypt.DefaultCost)
	if err != nil {
		b.Fatalf("bcrypt error: %v", err)
	}

	b.ResetTimer()
	for b.Loop() {
		if ok, err := cfg.Verify(string(raw), benchPassword); err != nil || !ok {
			b.Fatalf("Verify failed: ok=%v err=%v", ok, err)
		}
	}
}
