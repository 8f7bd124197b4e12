package session

import (
	"careerquest/cmd/security/token"
)

// maxRefreshTokenLen bounds input before hashing.
const maxRefreshTokenLen = 4096

func newOpaqueRefreshToken(nBytes int) (plain string, hashHex string, err error) {
	plain, err = token.NewOpaque(nBytes)
	if err != nil {
		return "", "", err
	}
	return plain, token.HashHex(plain), nil
}
