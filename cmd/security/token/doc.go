// Package token provides opaque-token primitives shared by refresh and reset tokens.
//
// Tokens handed to clients are random base64url strings. Only their digest is stored:
// HMAC-SHA256(token, CQ_TOKEN_HMAC_KEY) when a key is configured, plain SHA-256 otherwise.
// Digests are always 64 hex chars.
package token
