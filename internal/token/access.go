// Package token implements the two signed-token primitives used by the
// backend: self-contained bearer access tokens (JWT) and url-safe
// signed tokens for email verification and password reset flows. Both
// verify purely as a function of (token, secret, clock); the only
// server-side state layered on top is the revocation list.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fastship/backend/internal/apperr"
	"github.com/fastship/backend/types"
)

// DefaultAccessTTL is the access token lifetime when none is given.
const DefaultAccessTTL = 15 * time.Minute

// AccessClaims is the payload embedded in access tokens: a user
// snapshot plus the registered jti and exp claims.
type AccessClaims struct {
	User types.Identity `json:"user"`
	jwt.RegisteredClaims
}

// Service issues and decodes HMAC-signed access tokens.
type Service struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// NewService constructs a Service signing with HS256.
func NewService(secret string) *Service {
	return &Service{
		secret: []byte(secret),
		method: jwt.SigningMethodHS256,
		now:    time.Now,
	}
}

// Issue signs an access token embedding the identity and a fresh jti.
// A non-positive ttl falls back to DefaultAccessTTL.
func (s *Service) Issue(identity types.Identity, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	now := s.now()
	claims := AccessClaims{
		User: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
}

// Decode verifies the token and returns its claims. Expired tokens
// fail with ACCESS_TOKEN_EXPIRED, anything else that does not verify
// fails with TOKEN_INVALID. Decode performs no I/O.
func (s *Service) Decode(tokenString string) (AccessClaims, error) {
	claims := AccessClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AccessClaims{}, apperr.New(apperr.CodeAccessTokenExpired, "Token has expired")
		}
		return AccessClaims{}, apperr.New(apperr.CodeTokenInvalid, "Invalid token")
	}
	if !parsed.Valid {
		return AccessClaims{}, apperr.New(apperr.CodeTokenInvalid, "Invalid token")
	}
	return claims, nil
}
