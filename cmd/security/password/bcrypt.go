package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func (c Config) hashBcrypt(password string) (string, error) {
	// bcrypt silently truncates at 72 bytes; refuse instead.
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	cost := c.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c Config) verifyBcrypt(encodedHash, password string) (bool, error) {
	cost, err := bcryptCost(encodedHash)
	if err != nil {
		return false, ErrInvalidHash
	}
	// Anti-DoS: a stored cost far above ours would stall the login path.
	if cost > c.BcryptCost+2 && cost > DefaultBcryptCost+2 {
		return false, ErrInvalidHash
	}

	err = bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}

func bcryptCost(encodedHash string) (int, error) {
	return bcrypt.Cost([]byte(encodedHash))
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
