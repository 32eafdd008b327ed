package token

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastship/backend/internal/apperr"
)

func TestSignVerifyRoundtrip(t *testing.T) {
	signer := NewSigner("test-secret")
	payload := Payload{Email: "ada@example.com", ID: "some-id"}

	tokenString, err := signer.Sign(payload, "")
	require.NoError(t, err)

	got, err := signer.Verify(tokenString, "", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestVerifySaltMismatch(t *testing.T) {
	// A verification token must not be redeemable as a
	// password-reset token even when payloads collide.
	signer := NewSigner("test-secret")
	tokenString, err := signer.Sign(Payload{Email: "ada@example.com"}, "")
	require.NoError(t, err)

	_, err = signer.Verify(tokenString, "password-reset-token", time.Hour)
	assert.True(t, apperr.Is(err, apperr.CodeTokenInvalid))
}

func TestVerifyExpiredRecoversPayload(t *testing.T) {
	signer := NewSigner("test-secret")
	signer.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	tokenString, err := signer.Sign(Payload{Email: "ada@example.com", ID: "some-id"}, "")
	require.NoError(t, err)

	signer.now = time.Now
	payload, err := signer.Verify(tokenString, "", 24*time.Hour)
	require.True(t, apperr.Is(err, apperr.CodeTokenExpired))

	// The stale payload is still recovered for resend flows, both
	// on the return value and in the error metadata.
	assert.Equal(t, "ada@example.com", payload.Email)
	assert.Equal(t, "some-id", payload.ID)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "some-id", appErr.Meta["user_id"])
	assert.Equal(t, "ada@example.com", appErr.Meta["email"])
}

func TestVerifyTamperedSignature(t *testing.T) {
	signer := NewSigner("test-secret")
	tokenString, err := signer.Sign(Payload{Email: "ada@example.com"}, "")
	require.NoError(t, err)

	tampered := tokenString[:len(tokenString)-2] + "xx"
	payload, err := signer.Verify(tampered, "", time.Hour)
	assert.True(t, apperr.Is(err, apperr.CodeTokenInvalid))
	assert.Empty(t, payload.Email)
}

func TestVerifyWrongSecret(t *testing.T) {
	signer := NewSigner("test-secret")
	tokenString, err := signer.Sign(Payload{Email: "ada@example.com"}, "")
	require.NoError(t, err)

	other := NewSigner("other-secret")
	_, err = other.Verify(tokenString, "", time.Hour)
	assert.True(t, apperr.Is(err, apperr.CodeTokenInvalid))
}

func TestVerifyNoWindowSkipsExpiryCheck(t *testing.T) {
	signer := NewSigner("test-secret")
	signer.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	tokenString, err := signer.Sign(Payload{Email: "ada@example.com"}, "")
	require.NoError(t, err)

	signer.now = time.Now
	payload, err := signer.Verify(tokenString, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", payload.Email)
}

func TestVerifyMalformed(t *testing.T) {
	signer := NewSigner("test-secret")
	for _, tokenString := range []string{"", "one", "one.two", "a.b.c.d"} {
		_, err := signer.Verify(tokenString, "", time.Hour)
		assert.True(t, apperr.Is(err, apperr.CodeTokenInvalid), "token %q", tokenString)
	}
}
