package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/atomic"
)

var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

type KafkaConfig struct {
	Brokers     []string
	ClientID    string
	DialTimeout time.Duration
}

// Kafka writes through a single writer; the topic travels on each message.
type Kafka struct {
	writer *kafka.Writer
	closed *atomic.Bool
}

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Transport: &kafka.Transport{
				ClientID:    cfg.ClientID,
				DialTimeout: cfg.DialTimeout,
			},
		},
		closed: atomic.NewBool(false),
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.check(ctx); err != nil {
		return Receipt{}, err
	}
	if k.closed.Load() {
		return Receipt{}, ErrClosed
	}

	km := kafka.Message{
		Topic: msg.Topic,
		Key:   []byte(msg.Key),
		Value: msg.Body,
		Time:  time.Now(),
	}
	for name, v := range msg.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: name, Value: []byte(v)})
	}

	if err := k.writer.WriteMessages(ctx, km); err != nil {
		return Receipt{}, fmt.Errorf("messaging: kafka write %s: %w", msg.Topic, err)
	}

	return Receipt{Topic: msg.Topic, AcceptedAt: km.Time}, nil
}

func (k *Kafka) Close() error {
	if !k.closed.CompareAndSwap(false, true) {
		return nil
	}
	return k.writer.Close()
}
