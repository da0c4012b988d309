package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"
)

var ErrNATSURLRequired = errors.New("messaging: nats url is required")

type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS publishes on core NATS subjects and flushes before returning, so a
// nil error means the server has the message.
type NATS struct {
	conn   *nats.Conn
	closed *atomic.Bool
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect %s: %w", cfg.URL, err)
	}

	return &NATS{conn: conn, closed: atomic.NewBool(false)}, nil
}

func (n *NATS) Publish(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.check(ctx); err != nil {
		return Receipt{}, err
	}
	if n.closed.Load() {
		return Receipt{}, ErrClosed
	}

	nm := &nats.Msg{Subject: msg.Topic, Data: msg.Body, Header: nats.Header{}}
	for name, v := range msg.Headers {
		nm.Header.Set(name, v)
	}

	if err := n.conn.PublishMsg(nm); err != nil {
		return Receipt{}, fmt.Errorf("messaging: nats publish %s: %w", msg.Topic, err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return Receipt{}, fmt.Errorf("messaging: nats flush: %w", err)
	}

	return Receipt{Topic: msg.Topic, AcceptedAt: time.Now()}, nil
}

// Close drains pending messages before closing the connection.
func (n *NATS) Close() error {
	if !n.closed.CompareAndSwap(false, true) {
		return nil
	}
	defer n.conn.Close()
	return n.conn.Drain()
}
