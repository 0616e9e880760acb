// Package queue also contains the background consumer that listens to
// the booking event queues and sends guest notifications.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/brlvenue/table-reservation/internal/notify"
)

const (
	confirmedQueueName = "booking.confirmed"
	cancelledQueueName = "booking.cancelled"
)

// Consumer drains the booking event queues and turns events into
// guest email.  It runs a reconnect loop per queue and keeps running
// through broker restarts; processing errors are logged and the
// offending message rejected without requeue so the loop cannot spin.
type Consumer struct {
	url    string
	mailer *notify.Mailer
	log    *zap.Logger
}

// NewConsumer builds a Consumer.  The mailer may be nil; events are
// then acknowledged without sending anything, which keeps the queues
// drained in environments without SMTP.
func NewConsumer(url string, mailer *notify.Mailer, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{url: url, mailer: mailer, log: log}
}

// Start launches one consume loop per queue.  It blocks; run it in a
// goroutine.
func (c *Consumer) Start() {
	go c.run(confirmedQueueName, c.handleConfirmed)
	c.run(cancelledQueueName, c.handleCancelled)
}

func (c *Consumer) run(queueName string, handle func([]byte) error) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("broker dial failed",
				zap.String("queue", queueName),
				zap.Duration("retry_in", backoff),
				zap.Error(err),
			)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := c.consumeLoop(conn, queueName, handle); err != nil {
			c.log.Warn("consume loop ended, reconnecting",
				zap.String("queue", queueName),
				zap.Error(err),
			)
			time.Sleep(2 * time.Second)
		}
	}
}

func (c *Consumer) consumeLoop(conn *amqp.Connection, queueName string, handle func([]byte) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handle(d.Body); err != nil {
			c.log.Error("handle message failed", zap.String("queue", queueName), zap.Error(err))
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *Consumer) handleConfirmed(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	c.log.Info("booking confirmed",
		zap.String("reference", ev.Reference),
		zap.String("day", ev.Day),
		zap.Int("party_size", ev.PartySize),
	)
	if ev.Email == "" {
		return nil
	}
	body2 := fmt.Sprintf(
		"Dear %s,\n\nYour table is booked.\n\nReference: %s\nDate: %s\nArrival: %s\nParty size: %d\nDeposit: £%d.%02d\n\nShow this code at the door: %s\n",
		ev.CustomerName, ev.Reference, ev.Day, ev.ArrivalAt, ev.PartySize,
		ev.DepositPence/100, ev.DepositPence%100, ev.CheckInCode,
	)
	if err := c.mailer.Send(ev.Email, "Booking confirmed - "+ev.Reference, body2); err != nil {
		// Mail failures are logged and dropped; the booking stands.
		c.log.Error("confirmation mail failed", zap.String("reference", ev.Reference), zap.Error(err))
	}
	return nil
}

func (c *Consumer) handleCancelled(body []byte) error {
	var ev BookingCancelledEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	c.log.Info("booking cancelled",
		zap.String("reference", ev.Reference),
		zap.Bool("refund_eligible", ev.RefundEligible),
		zap.Int("refund_pence", ev.RefundPence),
	)
	if ev.Email == "" {
		return nil
	}
	var refundLine string
	switch {
	case ev.RefundEligible && ev.RefundProcessed:
		refundLine = fmt.Sprintf("A refund of £%d.%02d has been issued.", ev.RefundPence/100, ev.RefundPence%100)
	case ev.RefundEligible:
		refundLine = fmt.Sprintf("A refund of £%d.%02d will reach you within 5 working days.", ev.RefundPence/100, ev.RefundPence%100)
	default:
		refundLine = "The deposit is not refundable at this notice."
	}
	body2 := fmt.Sprintf("Dear %s,\n\nYour booking %s has been cancelled.\n%s\n", ev.CustomerName, ev.Reference, refundLine)
	if err := c.mailer.Send(ev.Email, "Booking cancelled - "+ev.Reference, body2); err != nil {
		c.log.Error("cancellation mail failed", zap.String("reference", ev.Reference), zap.Error(err))
	}
	return nil
}
