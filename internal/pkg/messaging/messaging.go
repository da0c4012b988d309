package messaging

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTopicRequired = errors.New("messaging: topic is required")
	ErrClosed        = errors.New("messaging: client is closed")
)

// Messaging publishes events to one broker. Close is idempotent.
type Messaging interface {
	Publish(ctx context.Context, msg Message) (Receipt, error)
	Close() error
}

// Message is one event bound for a topic. Key groups related events: it is
// the Kafka partition key and the Pub/Sub ordering key. Brokers without
// header support drop Headers.
type Message struct {
	Topic   string
	Key     string
	Body    []byte
	Headers map[string]string
}

// Receipt describes an accepted message. ID is empty unless the broker
// assigns one.
type Receipt struct {
	ID         string
	Topic      string
	AcceptedAt time.Time
}

func (m Message) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.Topic == "" {
		return ErrTopicRequired
	}
	return nil
}
