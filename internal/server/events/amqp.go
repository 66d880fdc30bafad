package events

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/msavelyev/authkeeper/internal/logging"
)

// Exchange is the topic exchange user events are published to.
const Exchange = "user.events"

// envelope is the wire format: the routing key doubles as the type tag so
// consumers can dispatch on it.
type envelope struct {
	Type    string    `json:"type"`
	Payload UserEvent `json:"payload"`
}

// AMQPPublisher publishes events to a RabbitMQ topic exchange.
type AMQPPublisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger logging.Logger
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url string, logger logging.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &AMQPPublisher{conn: conn, ch: ch, logger: logger}, nil
}

// Publish sends the event to the exchange. Failures are logged, never
// surfaced: the caller's transaction is already committed and must not be
// affected by bus trouble.
func (p *AMQPPublisher) Publish(ctx context.Context, event UserEvent) {
	body, err := json.Marshal(envelope{Type: event.Key(), Payload: event})
	if err != nil {
		p.logger.Error(ctx, "marshal event", "key", event.Key(), "error", err)
		return
	}

	err = p.ch.PublishWithContext(ctx, Exchange, event.Key(), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		p.logger.Error(ctx, "publish event", "key", event.Key(), "error", err)
	}
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}
