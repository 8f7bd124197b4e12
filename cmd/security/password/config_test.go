package password

import (
	"os"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"CQ_PASSWORD_ALGORITHM",
		"CQ_BCRYPT_COST",
		"CQ_PASSWORD_MIN_LEN",
		"CQ_PASSWORD_MAX_LEN",
		"CQ_PASSWORD_REJECT_VERY_WEAK",
		"CQ_ARGON2_MEMORY_KIB",
		"CQ_ARGON2_ITERATIONS",
		"CQ_ARGON2_PARALLELISM",
		"CQ_ARGON2_SALT_LEN",
		"CQ_ARGON2_KEY_LEN",
	} {
		_ = os.Unsetenv(k)
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	def := DefaultConfig()
	if cfg.Policy.MinLength != def.Policy.MinLength {
		t.Fatalf("min length mismatch")
	}
	if cfg.BcryptCost != def.BcryptCost || cfg.Algorithm != def.Algorithm {
		t.Fatalf("algorithm mismatch: %+v", cfg)
	}
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("CQ_PASSWORD_ALGORITHM", "ARGON2ID")
	t.Setenv("CQ_BCRYPT_COST", "10")
	t.Setenv("CQ_PASSWORD_MIN_LEN", "10")
	t.Setenv("CQ_PASSWORD_MAX_LEN", "64")
	t.Setenv("CQ_PASSWORD_REJECT_VERY_WEAK", "false")
	t.Setenv("CQ_ARGON2_MEMORY_KIB", "32768")
	t.Setenv("CQ_ARGON2_ITERATIONS", "4")
	t.Setenv("CQ_ARGON2_PARALLELISM", "2")
	t.Setenv("CQ_ARGON2_SALT_LEN", "24")
	t.Setenv("CQ_ARGON2_KEY_LEN", "32")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	if cfg.Algorithm != AlgorithmArgon2id || cfg.BcryptCost != 10 {
		t.Fatalf("algorithm override failed: %+v", cfg)
	}
	if cfg.Policy.MinLength != 10 || cfg.Policy.MaxLength != 64 || cfg.Policy.RejectVeryWeak {
		t.Fatalf("policy override failed: %+v", cfg.Policy)
	}
	if cfg.Params.MemoryKiB != 32768 || cfg.Params.Iterations != 4 || cfg.Params.Parallelism != 2 {
		t.Fatalf("argon2 override failed: %+v", cfg.Params)
	}
	if cfg.Params.SaltLength != 24 || cfg.Params.KeyLength != 32 {
		t.Fatalf("len override failed: %+v", cfg.Params)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		"CQ_PASSWORD_ALGORITHM": "md5",
		"CQ_BCRYPT_COST":        "40",
		"CQ_ARGON2_ITERATIONS":  "0",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", k, v)
			}
		})
	}
}

func TestFromEnv_InvalidMinMax(t *testing.T) {
	t.Setenv("CQ_PASSWORD_MIN_LEN", "20")
	t.Setenv("CQ_PASSWORD_MAX_LEN", "10")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error")
	}
}
