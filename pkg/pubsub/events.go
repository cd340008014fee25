package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
)

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// Event is a JSON domain event published with routing attributes.
type Event struct {
	Type        string
	AggregateID string
	OccurredAt  time.Time
	Payload     any
}

// EventPublisher serializes events and waits for the broker acknowledgement.
type EventPublisher struct {
	pub publisher
}

// NewEventPublisher wraps a Pub/Sub publisher handle.
func NewEventPublisher(p *pubsub.Publisher) (*EventPublisher, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return &EventPublisher{pub: &gcpPublisher{Publisher: p}}, nil
}

// Publish sends the event and returns the server-assigned message id.
func (e *EventPublisher) Publish(ctx context.Context, event Event) (string, error) {
	if e == nil || e.pub == nil {
		return "", errors.New("event publisher not initialized")
	}
	if event.Type == "" {
		return "", errors.New("event type required")
	}
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return "", err
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type":   event.Type,
			"aggregate_id": event.AggregateID,
			"occurred_at":  occurred.Format(time.RFC3339Nano),
		},
	}
	result := e.pub.Publish(ctx, msg)
	if result == nil {
		return "", errors.New("publish result is nil")
	}
	return result.Get(ctx)
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*pubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
