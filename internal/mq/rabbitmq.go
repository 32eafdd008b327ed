package mq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fastship/backend/config"
)

// rabbitQueue delivers mail jobs through a RabbitMQ queue declared
// once at connect time.
type rabbitQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func connectRabbit(cfg config.RabbitMQConfig) (*rabbitQueue, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}
	if _, err := ch.QueueDeclare(MailQueue, cfg.QueueDurable, cfg.QueueAutoDelete, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &rabbitQueue{conn: conn, ch: ch}, nil
}

func (q *rabbitQueue) Publish(ctx context.Context, kind string, body []byte) (string, error) {
	id := randomID()
	err := q.ch.PublishWithContext(ctx, "", MailQueue, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   id,
		Headers:     amqp.Table{"kind": kind},
		Body:        body,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (q *rabbitQueue) Consume(ctx context.Context, handler Handler) error {
	tag := "mail-worker-" + randomID()
	deliveries, err := q.ch.Consume(MailQueue, tag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = q.ch.Cancel(tag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			d := Delivery{ID: msg.MessageId, Kind: headerKind(msg.Headers), Body: msg.Body}
			if err := handler(ctx, d); err != nil {
				_ = msg.Nack(false, true)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}

func (q *rabbitQueue) Close() error {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

func headerKind(headers amqp.Table) string {
	switch v := headers["kind"].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

func randomID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
