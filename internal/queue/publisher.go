package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes MailEvents.  Each Publish dials the broker, declares
// the queue and closes the connection again; mail volume is low enough that
// a pooled connection is not worth its reconnect handling.
type Publisher struct {
	url   string
	queue string
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url, queue: MailQueue} }

// dialTimeout bounds connect and handshake when ctx carries no deadline.
const dialTimeout = 5 * time.Second

// dial opens a broker connection that honours ctx: the TCP connect is
// cancelled with it, and the AMQP handshake must finish before its
// deadline.  Cancelling ctx later aborts any pending socket I/O.
func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, error) {
	cfg := amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			deadline, ok := ctx.Deadline()
			if !ok {
				deadline = time.Now().Add(dialTimeout)
			}
			d := net.Dialer{Deadline: deadline}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// cleared by the client once the handshake completes
			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}
			context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
			return conn, nil
		},
	}
	return amqp.DialConfig(p.url, cfg)
}

// Publish sends ev as a persistent message.  Errors are logged and
// returned; the caller decides whether the request fails.
func (p *Publisher) Publish(ctx context.Context, ev MailEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := p.dial(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "rabbitmq dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		slog.ErrorContext(ctx, "rabbitmq channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		slog.ErrorContext(ctx, "rabbitmq queue declare failed", "queue", p.queue, "err", err)
		return err
	}

	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.CreatedAt,
		Type:         ev.Kind,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		slog.ErrorContext(ctx, "rabbitmq publish failed", "queue", p.queue, "err", err)
		return err
	}
	return nil
}
