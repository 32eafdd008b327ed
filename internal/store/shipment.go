package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fastship/backend/types"
)

// shipmentColumns joins the user table twice to denormalize the buyer
// and seller usernames onto every read.
const shipmentColumns = `
	s.id, s.product, s.progress, s.approval_status, s.estimated_delivery,
	s.buyer_id, s.seller_id, b.username, sl.username, s.created_at, s.updated_at`

const shipmentFrom = `
	FROM shipments s
	JOIN users b ON b.id = s.buyer_id
	JOIN users sl ON sl.id = s.seller_id`

// ShipmentRepository handles persistence for shipments.
type ShipmentRepository struct {
	db *sql.DB
}

func NewShipmentRepository(db *sql.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipment(row rowScanner) (types.Shipment, error) {
	var shipment types.Shipment
	err := row.Scan(
		&shipment.ID,
		&shipment.Product,
		&shipment.Progress,
		&shipment.ApprovalStatus,
		&shipment.EstimatedDelivery,
		&shipment.BuyerID,
		&shipment.SellerID,
		&shipment.BuyerUsername,
		&shipment.SellerUsername,
		&shipment.CreatedAt,
		&shipment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Shipment{}, ErrNotFound
		}
		return types.Shipment{}, err
	}
	return shipment, nil
}

func (r *ShipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (types.Shipment, error) {
	const query = `SELECT` + shipmentColumns + shipmentFrom + ` WHERE s.id = $1`
	return scanShipment(r.db.QueryRowContext(ctx, query, id))
}

func (r *ShipmentRepository) ListAll(ctx context.Context) ([]types.Shipment, error) {
	const query = `SELECT` + shipmentColumns + shipmentFrom + ` ORDER BY s.created_at DESC`
	return r.list(ctx, query)
}

// ListByUser returns shipments where the user is buyer or seller.
func (r *ShipmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Shipment, error) {
	const query = `SELECT` + shipmentColumns + shipmentFrom + `
		WHERE s.buyer_id = $1 OR s.seller_id = $1
		ORDER BY s.created_at DESC`
	return r.list(ctx, query, userID)
}

// ListByBuyer returns the user's purchases.
func (r *ShipmentRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]types.Shipment, error) {
	const query = `SELECT` + shipmentColumns + shipmentFrom + `
		WHERE s.buyer_id = $1
		ORDER BY s.created_at DESC`
	return r.list(ctx, query, buyerID)
}

// ListBySeller returns the user's sales.
func (r *ShipmentRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]types.Shipment, error) {
	const query = `SELECT` + shipmentColumns + shipmentFrom + `
		WHERE s.seller_id = $1
		ORDER BY s.created_at DESC`
	return r.list(ctx, query, sellerID)
}

func (r *ShipmentRepository) list(ctx context.Context, query string, args ...any) ([]types.Shipment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shipments []types.Shipment
	for rows.Next() {
		shipment, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, shipment)
	}
	return shipments, rows.Err()
}

func (r *ShipmentRepository) Create(ctx context.Context, shipment types.Shipment) (types.Shipment, error) {
	now := time.Now()
	shipment.CreatedAt = now
	shipment.UpdatedAt = now
	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}

	const query = `
		INSERT INTO shipments (id, product, progress, approval_status, estimated_delivery, buyer_id, seller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		shipment.ID,
		shipment.Product,
		shipment.Progress,
		shipment.ApprovalStatus,
		shipment.EstimatedDelivery,
		shipment.BuyerID,
		shipment.SellerID,
		shipment.CreatedAt,
		shipment.UpdatedAt,
	); err != nil {
		return types.Shipment{}, err
	}
	return shipment, nil
}

// SetApprovalStatus persists a new approval status for the shipment.
func (r *ShipmentRepository) SetApprovalStatus(ctx context.Context, id uuid.UUID, status types.ApprovalStatus) error {
	const query = `
		UPDATE shipments
		SET approval_status = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ShipmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM shipments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
