package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwtAccessClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

type jwtManager struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	secret    []byte
}

// NewJWTManager builds an AccessTokenManager producing HS256 JWTs.
func NewJWTManager(cfg Config) (AccessTokenManager, error) {
	if len(cfg.Secret) < MinSecretBytes {
		return nil, ErrConfig
	}
	return &jwtManager{
		issuer:    cfg.Issuer,
		ttl:       cfg.AccessTokenTTL,
		clockSkew: cfg.ClockSkew,
		secret:    append([]byte(nil), cfg.Secret...),
	}, nil
}

func (m *jwtManager) Issue(userID, email string, now time.Time) (string, time.Time, error) {
	exp := now.Add(m.ttl)

	claims := jwtAccessClaims{
		UserID: userID,
		Email:  email,
		Type:   TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *jwtManager) Verify(token string, now time.Time) (AccessClaims, error) {
	var claims jwtAccessClaims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(m.clockSkew),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		// Signature is checked before claims, so an expired token here is authentic.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AccessClaims{}, ErrTokenExpired
		}
		return AccessClaims{}, ErrInvalidToken
	}

	if claims.Type != TokenTypeAccess || claims.UserID == "" {
		return AccessClaims{}, ErrInvalidToken
	}

	out := AccessClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Type:   claims.Type,
		Issuer: claims.Issuer,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
