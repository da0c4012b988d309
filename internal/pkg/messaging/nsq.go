package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	nsq "github.com/nsqio/go-nsq"
	"go.uber.org/atomic"
)

var ErrNSQProducerAddrRequired = errors.New("messaging: nsq producer address is required")

type NSQConfig struct {
	ProducerAddr string
	// ProducerConfig defaults to nsq.NewConfig().
	ProducerConfig *nsq.Config
}

// NSQ publishes to a single nsqd. NSQ has no message headers or keys; only
// the body is sent.
type NSQ struct {
	producer *nsq.Producer
	closed   *atomic.Bool
}

func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.ProducerAddr == "" {
		return nil, ErrNSQProducerAddrRequired
	}

	pcfg := cfg.ProducerConfig
	if pcfg == nil {
		pcfg = nsq.NewConfig()
	}

	producer, err := nsq.NewProducer(cfg.ProducerAddr, pcfg)
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq producer %s: %w", cfg.ProducerAddr, err)
	}
	producer.SetLoggerLevel(nsq.LogLevelError)

	return &NSQ{producer: producer, closed: atomic.NewBool(false)}, nil
}

func (n *NSQ) Publish(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.check(ctx); err != nil {
		return Receipt{}, err
	}
	if n.closed.Load() {
		return Receipt{}, ErrClosed
	}

	if err := n.producer.Publish(msg.Topic, msg.Body); err != nil {
		return Receipt{}, fmt.Errorf("messaging: nsq publish %s: %w", msg.Topic, err)
	}

	return Receipt{Topic: msg.Topic, AcceptedAt: time.Now()}, nil
}

func (n *NSQ) Close() error {
	if n.closed.CompareAndSwap(false, true) {
		n.producer.Stop()
	}
	return nil
}
