package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"strings"
	"time"

	"github.com/fastship/backend/internal/apperr"
)

// Payload is the identity carried by url-safe tokens. Verification
// tokens carry both fields; password-reset tokens carry only Email.
type Payload struct {
	Email string `json:"email"`
	ID    string `json:"id,omitempty"`
}

// Signer produces stateless, time-windowed, HMAC-signed url-safe
// tokens. An optional salt namespaces tokens so one purpose's token
// cannot be redeemed for another even when payloads collide.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner constructs a Signer with the shared server secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Sign serializes the payload with an issue timestamp and appends an
// HMAC-SHA256 signature keyed by the secret and salt.
func (s *Signer) Sign(payload Payload, salt string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(s.now().Unix()))

	encBody := base64.RawURLEncoding.EncodeToString(body)
	encTS := base64.RawURLEncoding.EncodeToString(ts[:])
	sig := s.signature(salt, encBody, encTS)
	return encBody + "." + encTS + "." + sig, nil
}

// Verify checks the token's signature and, when maxAge is positive,
// its age. A bad signature or malformed token fails with TOKEN_INVALID
// and carries nothing. An authentic but stale token fails with
// TOKEN_EXPIRED and still returns the embedded payload so callers can
// drive "token expired, resend to this email" flows.
func (s *Signer) Verify(tokenString, salt string, maxAge time.Duration) (Payload, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return Payload{}, apperr.New(apperr.CodeTokenInvalid, "Invalid token")
	}
	encBody, encTS, sig := parts[0], parts[1], parts[2]

	expected := s.signature(salt, encBody, encTS)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return Payload{}, apperr.New(apperr.CodeTokenInvalid, "Invalid token")
	}

	body, err := base64.RawURLEncoding.DecodeString(encBody)
	if err != nil {
		return Payload{}, apperr.New(apperr.CodeTokenInvalid, "Invalid token")
	}
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Payload{}, apperr.New(apperr.CodeTokenInvalid, "Invalid token")
	}

	if maxAge > 0 {
		rawTS, err := base64.RawURLEncoding.DecodeString(encTS)
		if err != nil || len(rawTS) != 8 {
			return Payload{}, apperr.New(apperr.CodeTokenInvalid, "Invalid token")
		}
		issuedAt := time.Unix(int64(binary.BigEndian.Uint64(rawTS)), 0)
		if s.now().Sub(issuedAt) > maxAge {
			return payload, apperr.New(apperr.CodeTokenExpired, "Token has expired").
				WithMeta("user_id", payload.ID).
				WithMeta("email", payload.Email)
		}
	}
	return payload, nil
}

func (s *Signer) signature(salt, encBody, encTS string) string {
	key := s.secret
	if salt != "" {
		derived := hmac.New(sha256.New, s.secret)
		derived.Write([]byte(salt))
		key = derived.Sum(nil)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(encBody))
	mac.Write([]byte("."))
	mac.Write([]byte(encTS))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
