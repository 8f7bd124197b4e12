package password

import "strings"

// Hash validates password against the policy and returns an encoded hash
// using the configured algorithm.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}
	switch c.Algorithm {
	case AlgorithmArgon2id:
		return c.hashArgon2id(password)
	default:
		return c.hashBcrypt(password)
	}
}

// Verify checks whether password matches the given encoded hash.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash) for malformed/unsupported hashes.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		return c.verifyArgon2id(encodedHash, password)
	case isBcryptHash(encodedHash):
		return c.verifyBcrypt(encodedHash, password)
	default:
		return false, ErrInvalidHash
	}
}

// NeedsRehash reports whether a stored hash was produced with a different
// algorithm or a weaker cost than the current config.
func (c Config) NeedsRehash(encodedHash string) bool {
	switch c.Algorithm {
	case AlgorithmArgon2id:
		params, _, _, err := decodeArgon2id(encodedHash)
		if err != nil {
			return true
		}
		return params.MemoryKiB < c.Params.MemoryKiB || params.Iterations < c.Params.Iterations
	default:
		if !isBcryptHash(encodedHash) {
			return true
		}
		cost, err := bcryptCost(encodedHash)
		return err != nil || cost < c.BcryptCost
	}
}
