// Package mailer renders and delivers the transactional emails of the
// marketplace. The API server never sends mail directly: it publishes
// Jobs to the mail queue, and the worker process consumes them here.
package mailer

import (
	"github.com/fastship/backend/types"
)

// JobKind discriminates the mail job payload.
type JobKind string

const (
	JobVerification     JobKind = "verification"
	JobPasswordReset    JobKind = "password_reset"
	JobShipmentCreated  JobKind = "shipment_created"
	JobApprovalModified JobKind = "approval_modified"
)

// Recipient carries the addressing fields of a mail target.
type Recipient struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// RecipientFromUser builds a Recipient from a user record.
func RecipientFromUser(user types.User) Recipient {
	return Recipient{
		Username: user.Username,
		FullName: user.FullName,
		Email:    user.Email,
	}
}

// Job is the JSON payload published to the mail queue. User and Token
// are set for verification/password-reset jobs; Shipment, Buyer, and
// Seller for shipment jobs.
type Job struct {
	Kind     JobKind                `json:"kind"`
	User     *Recipient             `json:"user,omitempty"`
	Token    string                 `json:"token,omitempty"`
	Shipment *types.ShipmentSummary `json:"shipment,omitempty"`
	Buyer    *Recipient             `json:"buyer,omitempty"`
	Seller   *Recipient             `json:"seller,omitempty"`
}
