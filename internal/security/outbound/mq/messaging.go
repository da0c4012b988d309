package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/mynotes/internal/pkg/instrument"
	"github.com/shandysiswandi/mynotes/internal/pkg/messaging"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
	"github.com/shandysiswandi/mynotes/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

// Topics names the destinations of published events. Empty fields use the
// shared event destinations.
type Topics struct {
	Lockout             string
	SecondFactorChanged string
}

type Messaging struct {
	client messaging.Messaging
	topics Topics
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, topics Topics, ins instrument.Instrumentation) *Messaging {
	if topics.Lockout == "" {
		topics.Lockout = event.SecurityLockoutDestination
	}
	if topics.SecondFactorChanged == "" {
		topics.SecondFactorChanged = event.SecuritySecondFactorChangedDestination
	}

	return &Messaging{client: client, topics: topics, ins: ins}
}

func (m *Messaging) PublishLockout(ctx context.Context, evt entity.LockoutEvent) error {
	ctx, span := m.ins.Tracer("security.outbound.mq").Start(ctx, "PublishLockout")
	defer span.End()

	body, err := json.Marshal(event.SecurityLockoutMessage{
		AccountID:  evt.AccountID,
		SessionID:  evt.SessionID,
		Failures:   evt.Failures,
		OccurredAt: evt.OccurredAt.Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := m.publish(ctx, m.topics.Lockout, evt.AccountID, body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (m *Messaging) PublishSecondFactorChanged(ctx context.Context, evt entity.SecondFactorChanged) error {
	ctx, span := m.ins.Tracer("security.outbound.mq").Start(ctx, "PublishSecondFactorChanged")
	defer span.End()

	body, err := json.Marshal(event.SecuritySecondFactorChangedMessage{
		AccountID:  evt.AccountID,
		Enabled:    evt.Enabled,
		Algorithm:  evt.Algorithm.String(),
		OccurredAt: evt.OccurredAt.Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := m.publish(ctx, m.topics.SecondFactorChanged, evt.AccountID, body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

// publish keys every message by account so a partitioned broker keeps the
// events of one account in order.
func (m *Messaging) publish(ctx context.Context, topic, accountID string, body []byte) error {
	cID := instrument.GetCorrelationID(ctx)
	_, err := m.client.Publish(ctx, messaging.Message{
		Topic:   topic,
		Key:     accountID,
		Body:    body,
		Headers: map[string]string{keyOfCorrelationID: cID},
	})
	return err
}
