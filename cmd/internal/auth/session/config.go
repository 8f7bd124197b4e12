package session

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// TokenFormat selects the access-token encoding.
type TokenFormat string

const (
	FormatJWT    TokenFormat = "jwt"
	FormatPaseto TokenFormat = "paseto"
)

// MinSecretBytes is the shortest accepted signing secret.
const MinSecretBytes = 32

// Config defines runtime configuration for the session subsystem.
type Config struct {
	// Issuer is the value set in the "iss" claim of access tokens.
	Issuer string

	// Secret signs (jwt) or derives the encryption key for (paseto) access tokens.
	Secret []byte

	// Format selects the access-token implementation.
	Format TokenFormat

	AccessTokenTTL time.Duration
	RefreshTTL     time.Duration

	// ClockSkew is tolerated when checking exp/nbf.
	ClockSkew time.Duration

	// RefreshTokenBytes is the entropy of opaque refresh tokens.
	RefreshTokenBytes int

	// RotateRefresh consumes the presented refresh token and returns a new one on every refresh.
	RotateRefresh bool

	// IdleTimeout enables the session Registry when > 0.
	IdleTimeout time.Duration
}

// DefaultConfig returns defaults matching the CareerQuest web client. Secret is left empty.
func DefaultConfig() Config {
	return Config{
		Issuer:            "careerquest",
		Format:            FormatJWT,
		AccessTokenTTL:    7 * 24 * time.Hour,
		RefreshTTL:        30 * 24 * time.Hour,
		ClockSkew:         30 * time.Second,
		RefreshTokenBytes: 32,
		RotateRefresh:     true,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - CQ_JWT_SECRET (at least 32 bytes)
//
// Optional (durations must be valid Go duration strings):
//   - CQ_AUTH_ISSUER
//   - CQ_AUTH_TOKEN_FORMAT (jwt|paseto)
//   - CQ_AUTH_ACCESS_TTL
//   - CQ_AUTH_REFRESH_TTL
//   - CQ_AUTH_CLOCK_SKEW
//   - CQ_AUTH_REFRESH_TOKEN_BYTES
//   - CQ_AUTH_REFRESH_ROTATE
//   - CQ_AUTH_SESSION_IDLE_TIMEOUT (0 disables)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("CQ_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("CQ_AUTH_TOKEN_FORMAT"))); v != "" {
		switch TokenFormat(v) {
		case FormatJWT, FormatPaseto:
			cfg.Format = TokenFormat(v)
		default:
			return Config{}, ErrConfig
		}
	}

	var err error
	if cfg.AccessTokenTTL, err = positiveDuration("CQ_AUTH_ACCESS_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = positiveDuration("CQ_AUTH_REFRESH_TTL", cfg.RefreshTTL); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("CQ_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	if v := os.Getenv("CQ_AUTH_SESSION_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.IdleTimeout = d
	}

	if v := os.Getenv("CQ_AUTH_REFRESH_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 64 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenBytes = n
	}

	if v := strings.TrimSpace(os.Getenv("CQ_AUTH_REFRESH_ROTATE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.RotateRefresh = b
	}

	secret := strings.TrimSpace(os.Getenv("CQ_JWT_SECRET"))
	if len(secret) < MinSecretBytes {
		return Config{}, ErrConfig
	}
	cfg.Secret = []byte(secret)

	// An access token must not outlive the refresh token that can replace it.
	if cfg.AccessTokenTTL > cfg.RefreshTTL {
		return Config{}, ErrConfig
	}

	return cfg, nil
}

func positiveDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, ErrConfig
	}
	return d, nil
}
