package app

import (
	"strings"
	"testing"
)

func TestValidateSecurityConfig(t *testing.T) {
	t.Setenv("CQ_TOKEN_HMAC_KEY", "")
	if err := ValidateSecurityConfig(Config{RequireTokenHMAC: false}); err != nil {
		t.Fatalf("policy off: unexpected error %v", err)
	}

	err := ValidateSecurityConfig(Config{RequireTokenHMAC: true})
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("missing key: got %v", err)
	}

	t.Setenv("CQ_TOKEN_HMAC_KEY", "short")
	err = ValidateSecurityConfig(Config{RequireTokenHMAC: true})
	if err == nil || !strings.Contains(err.Error(), "too short") {
		t.Fatalf("short key: got %v", err)
	}

	t.Setenv("CQ_TOKEN_HMAC_KEY", strings.Repeat("k", 32))
	if err := ValidateSecurityConfig(Config{RequireTokenHMAC: true}); err != nil {
		t.Fatalf("valid key: unexpected error %v", err)
	}
}
