package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
)

type stubResult struct {
	id  string
	err error
}

func (r stubResult) Get(context.Context) (string, error) { return r.id, r.err }

type stubPublisher struct {
	msgs   []*pubsub.Message
	result publishResult
}

func (s *stubPublisher) Publish(_ context.Context, msg *pubsub.Message) publishResult {
	s.msgs = append(s.msgs, msg)
	return s.result
}

func TestEventPublisherSetsAttributes(t *testing.T) {
	stub := &stubPublisher{result: stubResult{id: "msg-1"}}
	pub := &EventPublisher{pub: stub}

	id, err := pub.Publish(context.Background(), Event{
		Type:        "order.placed",
		AggregateID: "order-1",
		Payload:     map[string]any{"total": "10150"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if id != "msg-1" {
		t.Fatalf("expected msg-1, got %q", id)
	}
	if len(stub.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(stub.msgs))
	}
	msg := stub.msgs[0]
	if msg.Attributes["event_type"] != "order.placed" || msg.Attributes["aggregate_id"] != "order-1" {
		t.Fatalf("unexpected attributes %+v", msg.Attributes)
	}
	if msg.Attributes["occurred_at"] == "" {
		t.Fatal("expected occurred_at attribute")
	}
	var body map[string]string
	if err := json.Unmarshal(msg.Data, &body); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if body["total"] != "10150" {
		t.Fatalf("unexpected payload %+v", body)
	}
}

func TestEventPublisherPropagatesErrors(t *testing.T) {
	pub := &EventPublisher{pub: &stubPublisher{result: stubResult{err: errors.New("unavailable")}}}
	if _, err := pub.Publish(context.Background(), Event{Type: "order.placed"}); err == nil {
		t.Fatal("expected publish error")
	}
	if _, err := pub.Publish(context.Background(), Event{}); err == nil {
		t.Fatal("expected missing type to fail")
	}
	var nilPub *EventPublisher
	if _, err := nilPub.Publish(context.Background(), Event{Type: "x"}); err == nil {
		t.Fatal("expected nil publisher to fail")
	}
}

func TestTopicResourceName(t *testing.T) {
	if got := topicResourceName("farm", "storefront-orders"); got != "projects/farm/topics/storefront-orders" {
		t.Fatalf("unexpected resource name %q", got)
	}
	if got := topicResourceName("farm", "projects/other/topics/x"); got != "projects/other/topics/x" {
		t.Fatalf("full names should pass through, got %q", got)
	}
	if got := topicResourceName("", "x"); got != "" {
		t.Fatalf("missing project should yield empty name, got %q", got)
	}
}
