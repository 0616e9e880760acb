// Package queue_publisher provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures without
// interrupting the main request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	q "github.com/brlvenue/table-reservation/internal/queue"
)

// Publisher publishes booking events.  Each publish dials a fresh
// connection; at venue volumes (tens of bookings an hour) this is
// simpler than managing a long-lived channel through broker restarts.
type Publisher struct {
	url string
	log *zap.Logger
}

// New returns a Publisher for the given broker URL.
func New(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, log: log}
}

// BookingConfirmed publishes ev to the "booking.confirmed" queue.
// The function never panics; any error is logged and returned so the
// caller can choose to ignore it.  Messages are marked persistent.
func (p *Publisher) BookingConfirmed(ctx context.Context, ev q.BookingConfirmedEvent) error {
	return p.publish(ctx, "booking.confirmed", ev)
}

// BookingCancelled publishes ev to the "booking.cancelled" queue.
func (p *Publisher) BookingCancelled(ctx context.Context, ev q.BookingCancelledEvent) error {
	return p.publish(ctx, "booking.cancelled", ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, event interface{}) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Error("rabbitmq dial failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Error("rabbitmq channel open failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	); err != nil {
		p.log.Error("rabbitmq queue declare failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error("marshal event failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		p.log.Error("rabbitmq publish failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}

	return nil
}
