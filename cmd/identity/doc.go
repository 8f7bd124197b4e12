// Package identity implements the CareerQuest credential store.
//
// Users are keyed by ULID with a derived unique index on the normalized
// (trimmed, lower-cased) email. Both indexes change together on every write.
// Accounts are soft-deleted: the row stays, the email is released.
package identity
