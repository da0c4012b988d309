package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

var ErrPubSubProjectIDRequired = errors.New("messaging: pubsub project id is required")

type PubSubConfig struct {
	ProjectID     string
	ClientOptions []option.ClientOption
}

// PubSub keeps one ordered publisher per topic. Messages with a Key are
// delivered in order per key.
type PubSub struct {
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if cfg.ProjectID == "" {
		return nil, ErrPubSubProjectIDRequired
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("messaging: pubsub client %s: %w", cfg.ProjectID, err)
	}

	return &PubSub{client: client, publishers: map[string]*pubsub.Publisher{}}, nil
}

func (p *PubSub) Publish(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.check(ctx); err != nil {
		return Receipt{}, err
	}

	pub, err := p.publisher(msg.Topic)
	if err != nil {
		return Receipt{}, err
	}

	id, err := pub.Publish(ctx, &pubsub.Message{
		Data:        msg.Body,
		Attributes:  msg.Headers,
		OrderingKey: msg.Key,
	}).Get(ctx)
	if err != nil {
		// a failed ordered publish pauses its key until resumed
		if msg.Key != "" {
			pub.ResumePublish(msg.Key)
		}
		return Receipt{}, fmt.Errorf("messaging: pubsub publish %s: %w", msg.Topic, err)
	}

	return Receipt{ID: id, Topic: msg.Topic, AcceptedAt: time.Now()}, nil
}

func (p *PubSub) publisher(topic string) (*pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.publishers == nil {
		return nil, ErrClosed
	}
	pub, ok := p.publishers[topic]
	if !ok {
		pub = p.client.Publisher(topic)
		pub.EnableMessageOrdering = true
		p.publishers[topic] = pub
	}
	return pub, nil
}

// Close flushes every publisher, then closes the client.
func (p *PubSub) Close() error {
	p.mu.Lock()
	pubs := p.publishers
	p.publishers = nil
	p.mu.Unlock()

	if pubs == nil {
		return nil
	}
	for _, pub := range pubs {
		pub.Stop()
	}
	return p.client.Close()
}
