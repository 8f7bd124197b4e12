// Package password provides password hashing, verification, and policy checks.
//
// New hashes use bcrypt (cost 12 by default) or Argon2id when configured.
// Verify dispatches on the stored hash prefix so both formats remain readable:
//   - bcrypt:   $2a$ / $2b$ / $2y$
//   - Argon2id: $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt>$<hash>
//
// Stored hashes are treated as untrusted input; Argon2id parameters far above
// the configured values are refused.
package password
