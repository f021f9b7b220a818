package worker

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub/v2"
)

// PubSubPublisher publishes to Pub/Sub topics, keeping one publisher per
// topic so messages on a topic are batched together.
type PubSubPublisher struct {
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewPubSubPublisher creates a publisher for projectID.
func NewPubSubPublisher(ctx context.Context, projectID string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &PubSubPublisher{
		client:     client,
		publishers: make(map[string]*pubsub.Publisher),
	}, nil
}

// Publish sends data to topic and waits for the server to accept it.
func (p *PubSubPublisher) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error {
	result := p.publisher(topic).Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func (p *PubSubPublisher) publisher(topic string) *pubsub.Publisher {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pub, ok := p.publishers[topic]; ok {
		return pub
	}
	pub := p.client.Publisher(topic)
	p.publishers[topic] = pub
	return pub
}

// Close flushes pending messages and closes the client.
func (p *PubSubPublisher) Close() error {
	p.mu.Lock()
	for _, pub := range p.publishers {
		pub.Stop()
	}
	p.publishers = map[string]*pubsub.Publisher{}
	p.mu.Unlock()
	return p.client.Close()
}
