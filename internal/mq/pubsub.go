package mq

import (
	"context"
	"errors"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/fastship/backend/config"
)

// pubsubQueue delivers mail jobs through a Google Pub/Sub topic. The
// topic is resolved at connect time; the subscription is created
// lazily on the first Consume.
type pubsubQueue struct {
	client  *pubsub.Client
	topic   *pubsub.Topic
	subName string
}

func connectPubSub(ctx context.Context, cfg config.PubSubConfig) (*pubsubQueue, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	topic := client.Topic(MailQueue)
	exists, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if !exists {
		if topic, err = client.CreateTopic(ctx, MailQueue); err != nil {
			_ = client.Close()
			return nil, err
		}
	}

	suffix := cfg.SubscriptionSuffix
	if suffix == "" {
		suffix = "-sub"
	}

	return &pubsubQueue{client: client, topic: topic, subName: MailQueue + suffix}, nil
}

func (q *pubsubQueue) Publish(ctx context.Context, kind string, body []byte) (string, error) {
	result := q.topic.Publish(ctx, &pubsub.Message{
		Data:       body,
		Attributes: map[string]string{"kind": kind},
	})
	return result.Get(ctx)
}

func (q *pubsubQueue) Consume(ctx context.Context, handler Handler) error {
	sub := q.client.Subscription(q.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		if sub, err = q.client.CreateSubscription(ctx, q.subName, pubsub.SubscriptionConfig{Topic: q.topic}); err != nil {
			return err
		}
	}

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		d := Delivery{ID: msg.ID, Kind: msg.Attributes["kind"], Body: msg.Data}
		if err := handler(ctx, d); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (q *pubsubQueue) Close() error {
	q.topic.Stop()
	return q.client.Close()
}
