package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Deliverer sends one mail.  Implementations live in the mail package.
type Deliverer interface {
	Deliver(ctx context.Context, ev MailEvent) error
}

const maxBackoff = 30 * time.Second

// StartMailConsumer consumes the mail queue until ctx is cancelled.  It
// reconnects with exponential backoff whenever the broker is unreachable or
// the delivery channel closes.  A message that cannot be decoded or
// delivered is rejected without requeue so it cannot spin the consumer.
func StartMailConsumer(ctx context.Context, url string, d Deliverer) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			slog.Warn("mail-consumer: dial failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, d)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("mail-consumer: consume loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, d Deliverer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		slog.Warn("mail-consumer: set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(MailQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(MailQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(ctx, d, m.Body); err != nil {
				slog.Error("mail-consumer: delivery failed", "err", err)
				_ = m.Nack(false, false)
				continue
			}
			_ = m.Ack(false)
		}
	}
}

// HandleMessage decodes one queued body and delivers it.
func HandleMessage(ctx context.Context, d Deliverer, body []byte) error {
	var ev MailEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if len(ev.To) == 0 {
		return errors.New("mail event has no recipient")
	}
	if err := d.Deliver(ctx, ev); err != nil {
		return fmt.Errorf("deliver %s: %w", ev.Kind, err)
	}
	return nil
}
