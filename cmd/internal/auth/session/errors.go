package session

import "errors"

var (
	// ErrInvalidToken is returned when an access token is malformed, tampered with, or of the wrong type.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for a well-formed access token past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrSessionNotFound is returned when a refresh token is unknown, expired, or revoked.
	ErrSessionNotFound = errors.New("session not found")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
