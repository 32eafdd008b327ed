package types

import (
	"time"

	"github.com/google/uuid"
)

// ProgressStatus tracks the physical shipping state of a shipment.
// It advances independently of the approval status.
type ProgressStatus string

const (
	ProgressPlaced    ProgressStatus = "placed"
	ProgressInTransit ProgressStatus = "in_transit"
	ProgressShipped   ProgressStatus = "shipped"
)

// Valid reports whether s is one of the known progress states.
func (s ProgressStatus) Valid() bool {
	switch s {
	case ProgressPlaced, ProgressInTransit, ProgressShipped:
		return true
	}
	return false
}

// ApprovalStatus tracks buyer/seller agreement on a shipment.
// A shipment starts pending and leaves pending exactly once;
// pending is never a transition target.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalAccepted ApprovalStatus = "accepted"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is one of the known approval states.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalAccepted, ApprovalRejected:
		return true
	}
	return false
}

// Shipment represents a two-party transaction between a buyer and a seller.
type Shipment struct {
	// ID is the unique identifier of the shipment.
	ID uuid.UUID `json:"id" db:"id"`

	// Product describes the goods being shipped.
	Product string `json:"product" db:"product"`

	// Progress is the physical shipping state.
	Progress ProgressStatus `json:"progress" db:"progress"`

	// ApprovalStatus is the buyer/seller agreement state.
	ApprovalStatus ApprovalStatus `json:"approval_status" db:"approval_status"`

	// EstimatedDelivery is the expected delivery instant, if known.
	EstimatedDelivery *time.Time `json:"estimated_delivery" db:"estimated_delivery"`

	// BuyerID references the purchasing user. Never equal to SellerID.
	BuyerID uuid.UUID `json:"buyer_id" db:"buyer_id"`

	// SellerID references the selling user.
	SellerID uuid.UUID `json:"seller_id" db:"seller_id"`

	// BuyerUsername and SellerUsername are denormalized from the
	// user table on read for display purposes.
	BuyerUsername  string `json:"buyer_username" db:"buyer_username"`
	SellerUsername string `json:"seller_username" db:"seller_username"`

	// CreatedAt is the timestamp when the shipment was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ShipmentSummary is the compact shipment view carried in
// notifications and profile listings.
type ShipmentSummary struct {
	ID                uuid.UUID      `json:"id"`
	Product           string         `json:"product"`
	Progress          ProgressStatus `json:"progress"`
	ApprovalStatus    ApprovalStatus `json:"approval_status"`
	EstimatedDelivery *time.Time     `json:"estimated_delivery"`
	BuyerUsername     string         `json:"buyer_username"`
	SellerUsername    string         `json:"seller_username"`
}

// Summary returns the notification view of the shipment.
func (s Shipment) Summary() ShipmentSummary {
	return ShipmentSummary{
		ID:                s.ID,
		Product:           s.Product,
		Progress:          s.Progress,
		ApprovalStatus:    s.ApprovalStatus,
		EstimatedDelivery: s.EstimatedDelivery,
		BuyerUsername:     s.BuyerUsername,
		SellerUsername:    s.SellerUsername,
	}
}
