package notification

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Result resolves once the broker has accepted or rejected a message.
type Result interface {
	Get(ctx context.Context) (serverID string, err error)
}

// Publisher queues one message per call without waiting for the broker.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) Result
}

type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher connects to projectID and ensures topic exists.
func NewPubSubPublisher(ctx context.Context, projectID, credJSON, topic string) (*PubSubPublisher, error) {
	if projectID == "" {
		return nil, errors.New("pubsub project id is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	var opts []option.ClientOption
	if credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}

	t := client.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check topic %q: %w", topic, err)
	}
	if !ok {
		if t, err = client.CreateTopic(ctx, topic); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("create topic %q: %w", topic, err)
		}
	}
	return &PubSubPublisher{client: client, topic: t}, nil
}

func (p *PubSubPublisher) Publish(ctx context.Context, data []byte, attrs map[string]string) Result {
	return p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
}

func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
