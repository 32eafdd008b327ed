package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fastship/backend/internal/mailer"
	"github.com/fastship/backend/types"
)

// Event is the envelope pushed over the realtime channel.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Realtime event types.
const (
	EventPurchaseAdd = "PURCHASE_ADD"
	EventSaleUpdate  = "SALE_UPDATE"
)

const publishTimeout = 10 * time.Second

// Publisher enqueues serialized mail jobs; mq.Queue satisfies it.
type Publisher interface {
	Publish(ctx context.Context, kind string, body []byte) (string, error)
}

// Dispatcher fans workflow events out to the realtime hub and the
// mail queue. Every method returns before delivery happens: the mail
// publish runs on its own goroutine with its own deadline, detached
// from the request that triggered it.
type Dispatcher struct {
	hub    *Hub
	queue  Publisher
	logger *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(hub *Hub, queue Publisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{hub: hub, queue: queue, logger: logger}
}

// ShipmentCreated notifies the buyer that a purchase awaits their
// response and queues the created emails for both parties.
func (d *Dispatcher) ShipmentCreated(shipment types.Shipment, seller, buyer types.User) {
	d.hub.Send(buyer.ID, Event{Type: EventPurchaseAdd, Payload: shipment.Summary()})

	summary := shipment.Summary()
	sellerRcpt := mailer.RecipientFromUser(seller)
	buyerRcpt := mailer.RecipientFromUser(buyer)
	d.enqueue(mailer.Job{
		Kind:     mailer.JobShipmentCreated,
		Shipment: &summary,
		Seller:   &sellerRcpt,
		Buyer:    &buyerRcpt,
	})
}

// ApprovalModified notifies the seller that their sale's status
// changed and queues the update emails for both parties.
func (d *Dispatcher) ApprovalModified(shipment types.Shipment, seller, buyer types.User) {
	d.hub.Send(seller.ID, Event{Type: EventSaleUpdate, Payload: shipment.Summary()})

	summary := shipment.Summary()
	sellerRcpt := mailer.RecipientFromUser(seller)
	buyerRcpt := mailer.RecipientFromUser(buyer)
	d.enqueue(mailer.Job{
		Kind:     mailer.JobApprovalModified,
		Shipment: &summary,
		Seller:   &sellerRcpt,
		Buyer:    &buyerRcpt,
	})
}

// VerificationEmail queues an account-verification email.
func (d *Dispatcher) VerificationEmail(user types.User, token string) {
	rcpt := mailer.RecipientFromUser(user)
	d.enqueue(mailer.Job{Kind: mailer.JobVerification, User: &rcpt, Token: token})
}

// PasswordResetEmail queues a password-reset email.
func (d *Dispatcher) PasswordResetEmail(user types.User, token string) {
	rcpt := mailer.RecipientFromUser(user)
	d.enqueue(mailer.Job{Kind: mailer.JobPasswordReset, User: &rcpt, Token: token})
}

func (d *Dispatcher) enqueue(job mailer.Job) {
	data, err := json.Marshal(job)
	if err != nil {
		d.logger.Error("failed to encode mail job", "kind", job.Kind, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if _, err := d.queue.Publish(ctx, string(job.Kind), data); err != nil {
			d.logger.Error("failed to enqueue mail job", "kind", job.Kind, "error", err)
		}
	}()
}
