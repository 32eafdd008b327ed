package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/fastship/backend/internal/mq"
)

// Worker consumes mail jobs from the queue and delivers them.
type Worker struct {
	mailer *Mailer
	queue  mq.Queue
	logger *slog.Logger
}

// NewWorker constructs a Worker.
func NewWorker(mailer *Mailer, queue mq.Queue, logger *slog.Logger) *Worker {
	return &Worker{mailer: mailer, queue: queue, logger: logger}
}

// Run blocks consuming the mail queue until ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	return w.queue.Consume(ctx, w.handle)
}

func (w *Worker) handle(ctx context.Context, d mq.Delivery) error {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		// Malformed jobs are dropped, not redelivered forever.
		w.logger.Error("dropping malformed mail job", "message_id", d.ID, "error", err)
		return nil
	}

	err := w.dispatch(job)
	if err != nil {
		w.logger.Error("mail job failed", "kind", job.Kind, "message_id", d.ID, "error", err)
		return err
	}
	w.logger.Info("mail job delivered", "kind", job.Kind, "message_id", d.ID)
	return nil
}

func (w *Worker) dispatch(job Job) error {
	switch job.Kind {
	case JobVerification:
		if job.User == nil {
			return errors.New("verification job missing user")
		}
		return w.mailer.SendVerification(*job.User, job.Token)
	case JobPasswordReset:
		if job.User == nil {
			return errors.New("password reset job missing user")
		}
		return w.mailer.SendPasswordReset(*job.User, job.Token)
	case JobShipmentCreated:
		if job.Shipment == nil || job.Seller == nil || job.Buyer == nil {
			return errors.New("shipment created job missing fields")
		}
		return w.mailer.SendShipmentCreated(*job.Shipment, *job.Seller, *job.Buyer)
	case JobApprovalModified:
		if job.Shipment == nil || job.Seller == nil || job.Buyer == nil {
			return errors.New("approval modified job missing fields")
		}
		return w.mailer.SendApprovalModified(*job.Shipment, *job.Seller, *job.Buyer)
	default:
		return errors.New("unknown mail job kind: " + string(job.Kind))
	}
}
