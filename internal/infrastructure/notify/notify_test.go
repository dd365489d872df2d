package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestWebhookNotifier_PostsContent(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		var payload webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		got = payload
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, srv.Client())
	if err := n.Notify(context.Background(), "chan-1", "hello"); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if got.Content != "hello" || got.ChannelID != "chan-1" {
		t.Errorf("payload = %+v", got)
	}

	if err := n.DirectMessage(context.Background(), "user-9", "psst"); err != nil {
		t.Fatalf("DirectMessage returned error: %v", err)
	}
	if got.Recipient != "user-9" || got.ChannelID != "" {
		t.Errorf("payload = %+v", got)
	}
}

func TestWebhookNotifier_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, srv.Client())
	if err := n.Notify(context.Background(), "", "hello"); err == nil {
		t.Fatalf("expected error for 429")
	}
}

type capturePublisher struct {
	exchange, key string
	msg           amqp.Publishing
}

func (c *capturePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return nil
}

func TestAMQPNotifier_RoutingKeys(t *testing.T) {
	pub := &capturePublisher{}
	n := &AMQPNotifier{exchange: "marketplace.notifications", ch: pub}

	if err := n.DirectMessage(context.Background(), "user-9", "psst"); err != nil {
		t.Fatalf("DirectMessage returned error: %v", err)
	}
	if pub.exchange != "marketplace.notifications" || pub.key != RoutingKeyDirect {
		t.Errorf("published to %s/%s", pub.exchange, pub.key)
	}
	var m Message
	if err := json.Unmarshal(pub.msg.Body, &m); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if m.Recipient != "user-9" || m.Content != "psst" {
		t.Errorf("message = %+v", m)
	}
	if pub.msg.DeliveryMode != amqp.Persistent {
		t.Errorf("notifications must be persistent")
	}

	if err := n.Notify(context.Background(), "chan-1", "hi"); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if pub.key != RoutingKeyChannel {
		t.Errorf("key = %s, want %s", pub.key, RoutingKeyChannel)
	}
}

func TestAMQPNotifier_ClosedChannel(t *testing.T) {
	n := &AMQPNotifier{exchange: "x", ch: &capturePublisher{}}
	if err := n.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := n.Notify(context.Background(), "", "hi"); err == nil {
		t.Fatalf("expected error after Close")
	}
}
