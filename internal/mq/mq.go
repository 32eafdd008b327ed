// Package mq carries serialized mail jobs between the API server and
// the worker process over a broker selected by config. Both backends
// bind to the single mail queue; there is no generic topic routing.
package mq

import (
	"context"

	"github.com/fastship/backend/config"
)

// MailQueue is the queue (or topic) name mail jobs travel on.
const MailQueue = "fastship.mail"

// Delivery is one mail job as received from the broker.
type Delivery struct {
	ID   string
	Kind string
	Body []byte
}

// Handler processes a delivery. Returning an error nacks the message
// for redelivery.
type Handler func(ctx context.Context, d Delivery) error

// Queue publishes and consumes mail jobs.
type Queue interface {
	Publish(ctx context.Context, kind string, body []byte) (string, error)
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// Connect opens the queue backend selected by config: "rabbitmq"
// (default) or "pubsub".
func Connect(ctx context.Context, cfg config.QueueConfig) (Queue, error) {
	if cfg.Backend == "pubsub" {
		return connectPubSub(ctx, cfg.PubSub)
	}
	return connectRabbit(cfg.RabbitMQ)
}
