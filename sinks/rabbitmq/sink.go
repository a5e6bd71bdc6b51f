// Package rabbitmq mirrors activity log entries to a RabbitMQ topic exchange
// so downstream consumers (alerting, SIEM ingestion) can tail security events
// without touching the durable store.
package rabbitmq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	authkit "github.com/allyelvis/authkit"
)

// Sink publishes activity entries as JSON messages. It satisfies
// [authkit.AuditSink]; like every sink it is best-effort — publish failures
// are logged, never surfaced to the authentication flow.
type Sink struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

var _ authkit.AuditSink = (*Sink)(nil)

// New dials the broker with a bounded timeout and declares the durable topic
// exchange.
func New(amqpURL, exchange string) (*Sink, error) {
	conn, err := amqp.DialConfig(amqpURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Sink{conn: conn, channel: ch, exchange: exchange}, nil
}

// Emit implements [authkit.AuditSink]. Routing key is "auth.<action>".
func (s *Sink) Emit(ctx context.Context, entry authkit.ActivityLogEntry) {
	body, err := json.Marshal(entry)
	if err != nil {
		log.Printf("rabbitmq sink: marshal failed: %v", err)
		return
	}

	err = s.channel.PublishWithContext(ctx,
		s.exchange,
		"auth."+string(entry.Action),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   entry.CreatedAt,
			Body:        body,
		},
	)
	if err != nil {
		log.Printf("rabbitmq sink: publish failed for action=%s: %v", entry.Action, err)
	}
}

// Close closes the channel and connection.
func (s *Sink) Close() {
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
