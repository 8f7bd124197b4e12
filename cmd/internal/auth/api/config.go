package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	LoginMaxAttempts int
	LoginWindow      time.Duration

	ResetTTL time.Duration
	// ExposeResetToken returns the reset token in the forgot-password response.
	// Development only.
	ExposeResetToken bool
}

// DefaultConfig returns the defaults used when no environment is set.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:     1 << 20,
		LoginMaxAttempts: 5,
		LoginWindow:      15 * time.Minute,
		ResetTTL:         time.Hour,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		TrustProxy:       envBool("CQ_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:     envInt64("CQ_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		LoginMaxAttempts: envInt("CQ_AUTH_LOGIN_MAX_ATTEMPTS", def.LoginMaxAttempts),
		LoginWindow:      envDuration("CQ_AUTH_LOGIN_WINDOW", def.LoginWindow),
		ResetTTL:         envDuration("CQ_AUTH_RESET_TTL", def.ResetTTL),
		ExposeResetToken: envBool("CQ_AUTH_EXPOSE_RESET_TOKEN", false),
	}

	// Reset links older than a day are never useful.
	if cfg.ResetTTL > 24*time.Hour {
		cfg.ResetTTL = 24 * time.Hour
	}
	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
