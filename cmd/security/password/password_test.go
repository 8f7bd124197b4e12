package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	return cfg
}

func TestHashAndVerify_Bcrypt(t *testing.T) {
	cfg := fastConfig()

	h, err := cfg.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(h, "$2a$") {
		t.Fatalf("expected bcrypt hash, got %q", h)
	}

	ok, err := cfg.Verify(h, "secret1")
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}

	ok, err = cfg.Verify(h, "secret2")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestDefaultConfig_BcryptCost12(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Algorithm != AlgorithmBcrypt || cfg.BcryptCost != 12 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestHashAndVerify_Argon2id(t *testing.T) {
	cfg := fastConfig()
	cfg.Algorithm = AlgorithmArgon2id

	h, err := cfg.Hash("this is a strong password 123!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(h, "$argon2id$v=19$") {
		t.Fatalf("expected argon2id hash, got %q", h)
	}

	ok, err := cfg.Verify(h, "this is a strong password 123!")
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	ok, err = cfg.Verify(h, "wrong password")
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestVerify_CrossAlgorithm(t *testing.T) {
	argon := fastConfig()
	argon.Algorithm = AlgorithmArgon2id
	h, err := argon.Hash("migrated-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	// A bcrypt-configured verifier still reads older argon2id hashes.
	ok, err := fastConfig().Verify(h, "migrated-password")
	if err != nil || !ok {
		t.Fatalf("expected argon2id hash to verify under bcrypt config, ok=%v err=%v", ok, err)
	}
	if !fastConfig().NeedsRehash(h) {
		t.Fatalf("expected argon2id hash to need rehash under bcrypt config")
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	cfg := fastConfig()

	for _, h := range []string{"not-a-hash", "$argon2id$v=18$m=1,t=1,p=1$AA$AA", "$2a$xx$broken"} {
		ok, err := cfg.Verify(h, "whatever")
		if err != ErrInvalidHash {
			t.Fatalf("Verify(%q): expected ErrInvalidHash, got %v", h, err)
		}
		if ok {
			t.Fatalf("expected false")
		}
	}
}

func TestHash_RejectsOver72Bytes(t *testing.T) {
	cfg := fastConfig()
	cfg.Policy.MaxLength = 200

	if _, err := cfg.Hash(strings.Repeat("ab", 40)); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestValidate_MinMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.MinLength = 12
	cfg.Policy.MaxLength = 16

	if err := cfg.Validate("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := cfg.Validate("this password is definitely too long"); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if err := cfg.Validate("goodpassw0rd!"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestPolicy_RejectVeryWeak(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate("password"); err != ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := cfg.Validate("111111"); err != ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := cfg.Validate("secret1"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
