package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fastship/backend/internal/apperr"
	"github.com/fastship/backend/internal/store"
	"github.com/fastship/backend/types"
)

// ShipmentRepository defines persistence operations for shipments.
type ShipmentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.Shipment, error)
	ListAll(ctx context.Context) ([]types.Shipment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Shipment, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]types.Shipment, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]types.Shipment, error)
	Create(ctx context.Context, shipment types.Shipment) (types.Shipment, error)
	SetApprovalStatus(ctx context.Context, id uuid.UUID, status types.ApprovalStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ShipmentNotifier triggers the workflow-event fanout. Implementations
// must not block the caller on delivery.
type ShipmentNotifier interface {
	ShipmentCreated(shipment types.Shipment, seller, buyer types.User)
	ApprovalModified(shipment types.Shipment, seller, buyer types.User)
}

// CreateShipmentInput carries the fields of a create request. The
// seller is always the authenticated caller, never an input field.
type CreateShipmentInput struct {
	Product           string
	Progress          types.ProgressStatus
	EstimatedDelivery *time.Time
	BuyerUsername     string
}

// ShipmentService encapsulates the shipment approval workflow.
type ShipmentService struct {
	repo     ShipmentRepository
	users    UserRepository
	notifier ShipmentNotifier
	now      func() time.Time
}

func NewShipmentService(repo ShipmentRepository, users UserRepository, notifier ShipmentNotifier) *ShipmentService {
	return &ShipmentService{repo: repo, users: users, notifier: notifier, now: time.Now}
}

// Create validates and persists a new pending shipment and fans out
// the created notifications: a realtime PURCHASE_ADD to the buyer and
// queued emails to both parties.
func (s *ShipmentService) Create(ctx context.Context, seller types.User, input CreateShipmentInput) (types.Shipment, error) {
	buyer, err := s.users.GetByUsername(ctx, input.BuyerUsername)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Shipment{}, apperr.New(apperr.CodeUserNotFound, "User not found")
		}
		return types.Shipment{}, err
	}

	progress := input.Progress
	if progress == "" {
		progress = types.ProgressPlaced
	}
	if !progress.Valid() {
		return types.Shipment{}, apperr.New(apperr.CodeInvalidProgress, "Unknown progress status")
	}
	if err := s.validateDeliveryDate(progress, input.EstimatedDelivery); err != nil {
		return types.Shipment{}, err
	}

	shipment, err := s.repo.Create(ctx, types.Shipment{
		Product:           input.Product,
		Progress:          progress,
		ApprovalStatus:    types.ApprovalPending,
		EstimatedDelivery: input.EstimatedDelivery,
		BuyerID:           buyer.ID,
		SellerID:          seller.ID,
	})
	if err != nil {
		return types.Shipment{}, err
	}
	shipment.BuyerUsername = buyer.Username
	shipment.SellerUsername = seller.Username

	s.notifier.ShipmentCreated(shipment, seller, buyer)
	return shipment, nil
}

// SetApprovalStatus moves the shipment to the target approval status
// and fans out the update notifications: a realtime SALE_UPDATE to
// the seller and queued emails to both parties. Pending is only an
// initial state and never a transition target; re-setting accepted or
// rejected is allowed.
func (s *ShipmentService) SetApprovalStatus(ctx context.Context, id uuid.UUID, status types.ApprovalStatus) (types.Shipment, error) {
	if status == types.ApprovalPending || !status.Valid() {
		return types.Shipment{}, apperr.New(apperr.CodeInvalidTransition, "Cannot transition a shipment back to pending")
	}

	shipment, err := s.getByID(ctx, id)
	if err != nil {
		return types.Shipment{}, err
	}

	if err := s.repo.SetApprovalStatus(ctx, id, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Shipment{}, apperr.New(apperr.CodeShipmentNotFound, "Shipment does not exist")
		}
		return types.Shipment{}, err
	}
	shipment.ApprovalStatus = status

	seller, sellerErr := s.users.GetByID(ctx, shipment.SellerID)
	buyer, buyerErr := s.users.GetByID(ctx, shipment.BuyerID)
	if sellerErr == nil && buyerErr == nil {
		s.notifier.ApprovalModified(shipment, seller, buyer)
	}
	return shipment, nil
}

// Delete removes the shipment. No notification fires for deletes.
func (s *ShipmentService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.CodeShipmentNotFound, "Shipment does not exist")
		}
		return err
	}
	return nil
}

// GetByID loads one shipment.
func (s *ShipmentService) GetByID(ctx context.Context, id uuid.UUID) (types.Shipment, error) {
	return s.getByID(ctx, id)
}

// ListAll returns every shipment. An empty table is reported as
// SHIPMENT_NOT_FOUND rather than an empty list.
func (s *ShipmentService) ListAll(ctx context.Context) ([]types.Shipment, error) {
	shipments, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(shipments) == 0 {
		return nil, apperr.New(apperr.CodeShipmentNotFound, "There are no shipments found")
	}
	return shipments, nil
}

// ListByUser returns the shipments the user participates in, as buyer
// or seller. An empty result is allowed here.
func (s *ShipmentService) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Shipment, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Purchases returns summaries of the user's purchases.
func (s *ShipmentService) Purchases(ctx context.Context, buyerID uuid.UUID) ([]types.ShipmentSummary, error) {
	shipments, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	return summaries(shipments), nil
}

// Sales returns summaries of the user's sales.
func (s *ShipmentService) Sales(ctx context.Context, sellerID uuid.UUID) ([]types.ShipmentSummary, error) {
	shipments, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return summaries(shipments), nil
}

func (s *ShipmentService) getByID(ctx context.Context, id uuid.UUID) (types.Shipment, error) {
	shipment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Shipment{}, apperr.New(apperr.CodeShipmentNotFound, "Shipment does not exist")
		}
		return types.Shipment{}, err
	}
	return shipment, nil
}

// validateDeliveryDate enforces the progress/delivery-date rule: a
// shipped shipment must already have been delivered, so its estimate
// lies in the past; a placed or in-transit one, if dated at all, must
// be dated strictly in the future.
func (s *ShipmentService) validateDeliveryDate(progress types.ProgressStatus, estimated *time.Time) error {
	now := s.now()
	switch progress {
	case types.ProgressShipped:
		if estimated == nil || estimated.After(now) {
			return apperr.New(apperr.CodeInvalidDeliveryDate, "Estimated delivery date must be in the past for shipped shipments")
		}
	case types.ProgressPlaced, types.ProgressInTransit:
		if estimated != nil && !estimated.After(now) {
			return apperr.New(apperr.CodeInvalidDeliveryDate, "Estimated delivery date must be in the future for placed or in transit shipments")
		}
	}
	return nil
}

func summaries(shipments []types.Shipment) []types.ShipmentSummary {
	result := make([]types.ShipmentSummary, 0, len(shipments))
	for _, shipment := range shipments {
		result = append(result, shipment.Summary())
	}
	return result
}
