package types

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account in the marketplace.
// It contains identity, verification state, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID uuid.UUID `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// FullName is the user's display name.
	FullName string `json:"full_name" db:"full_name"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// EmailVerified reports whether the user has redeemed a
	// verification token. Unverified accounts cannot log in.
	EmailVerified bool `json:"email_verified" db:"email_verified"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Identity is the snapshot of a user embedded in access tokens.
type Identity struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// Identity returns the token snapshot for the user.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Email: u.Email}
}

// Profile is a user together with their shipment history.
type Profile struct {
	ID        uuid.UUID         `json:"id"`
	Username  string            `json:"username"`
	FullName  string            `json:"full_name"`
	Email     string            `json:"email"`
	Purchases []ShipmentSummary `json:"purchases"`
	Sales     []ShipmentSummary `json:"sales"`
}
