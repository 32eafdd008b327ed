// Package revocation maintains the access-token blacklist. Revoked
// token ids are stored in redis with a TTL equal to the remaining
// lifetime of the token, so entries self-expire exactly when the
// token would have expired anyway.
package revocation

import (
	"context"
	"time"

	"github.com/fastship/backend/internal/apperr"
	"github.com/fastship/backend/internal/token"
)

const revokedMarker = "revoked"

// KV is the key-value contract the store needs: SET with expiry and
// an existence check.
type KV interface {
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Store is the jti blacklist.
type Store struct {
	kv  KV
	now func() time.Time
}

// NewStore constructs a Store over the given key-value backend.
func NewStore(kv KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Revoke blacklists the token identified by the claims for the
// remainder of its lifetime. Tokens that have already expired are a
// no-op since nothing redeemable remains to blacklist.
func (s *Store) Revoke(ctx context.Context, claims token.AccessClaims) error {
	if claims.ExpiresAt == nil {
		return apperr.New(apperr.CodeTokenMissingExpiry, "Token does not have an expiry")
	}
	if claims.ID == "" {
		return apperr.New(apperr.CodeTokenRevokeFailed, "Impossible to revoke token")
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.kv.SetEX(ctx, claims.ID, revokedMarker, ttl); err != nil {
		return apperr.New(apperr.CodeTokenRevokeFailed, "Impossible to revoke token")
	}
	return nil
}

// IsRevoked reports whether the jti is present in the blacklist.
func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.kv.Exists(ctx, jti)
}
