// Package session issues and validates CareerQuest credentials.
//
// Access tokens are short-lived and self-contained: HS256 JWTs by default,
// PASETO v4.local when CQ_AUTH_TOKEN_FORMAT=paseto. Both carry
// {userId, email, type:"access", iat} and are verified statelessly.
//
// Refresh tokens are opaque random strings. Only their digest is kept, in a
// tokenstore.Store, and they are rotated on use unless CQ_AUTH_REFRESH_ROTATE=false.
//
// Registry is an optional idle-timeout tracker consulted by the HTTP layer.
package session
