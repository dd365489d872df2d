package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys on the notification exchange.
const (
	RoutingKeyChannel = "notify.channel"
	RoutingKeyDirect  = "notify.direct"
)

const publishTimeout = 5 * time.Second

// Message is the JSON body published for every notification.
type Message struct {
	ChannelID string    `json:"channel_id,omitempty"`
	Recipient string    `json:"recipient,omitempty"`
	Content   string    `json:"content"`
	SentAt    time.Time `json:"sent_at"`
}

// publisher is the subset of *amqp.Channel the notifier uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes notifications to a topic exchange so a separate chat
// bot process can deliver them.
type AMQPNotifier struct {
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   publisher
}

// DialAMQP connects to url, opens a channel and declares exchange as a
// durable topic exchange.
func DialAMQP(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPNotifier{exchange: exchange, conn: conn, ch: ch}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, channelID, message string) error {
	return n.publish(ctx, RoutingKeyChannel, Message{ChannelID: channelID, Content: message})
}

func (n *AMQPNotifier) DirectMessage(ctx context.Context, userExternalID, message string) error {
	return n.publish(ctx, RoutingKeyDirect, Message{Recipient: userExternalID, Content: message})
}

func (n *AMQPNotifier) publish(ctx context.Context, key string, m Message) error {
	m.SentAt = time.Now().UTC()
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}
	return n.ch.PublishWithContext(
		publishCtx,
		n.exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    m.SentAt,
		},
	)
}

// Close closes the channel and the connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ch = nil
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn = nil
	return err
}
