// Package mail turns account and contact events into queued mail and
// delivers queued mail through Mailtrap or a local log file.
package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/queue"
	"github.com/iliyamo/trades-marketplace/internal/service"
)

// EventPublisher is satisfied by *queue.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.MailEvent) error
}

// QueueMailer implements service.Mailer by publishing to the mail queue.
// Mail is delivered asynchronously; a publish failure is returned.
type QueueMailer struct {
	pub           EventPublisher
	clientBaseURL string
	inbox         string
	now           func() time.Time
}

func NewQueueMailer(pub EventPublisher, clientBaseURL, inbox string) *QueueMailer {
	return &QueueMailer{
		pub:           pub,
		clientBaseURL: strings.TrimRight(clientBaseURL, "/"),
		inbox:         inbox,
		now:           time.Now,
	}
}

// ResetLink is the front-end page a reset token is redeemed on.
func ResetLink(clientBaseURL, token string) string {
	return strings.TrimRight(clientBaseURL, "/") + "/reset-password/" + token
}

func (m *QueueMailer) SendPasswordReset(ctx context.Context, to model.PublicAccount, resetToken string) error {
	link := ResetLink(m.clientBaseURL, resetToken)
	text := fmt.Sprintf("Hello %s,\n\nWe received a request to reset your password.\n"+
		"Open the link below within the next hour to choose a new one:\n\n%s\n\n"+
		"If you did not ask for this, you can ignore this message.\n", to.Name, link)
	return m.pub.Publish(ctx, queue.MailEvent{
		Kind:      queue.KindPasswordReset,
		To:        []string{to.Email},
		Subject:   "Reset your password",
		Text:      text,
		CreatedAt: m.now().UTC(),
	})
}

func (m *QueueMailer) SendContactMessage(ctx context.Context, msg service.ContactMessage) error {
	if m.inbox == "" {
		return fmt.Errorf("mail: no contact inbox configured")
	}
	text := fmt.Sprintf("Name: %s\nPhone: %s\nEmail: %s\nMessage: %s\n", msg.Name, msg.Phone, msg.Email, msg.Message)
	atts := make([]queue.MailAttachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		atts = append(atts, queue.MailAttachment{Filename: a.Filename, Content: a.Content, Type: a.Type})
	}
	return m.pub.Publish(ctx, queue.MailEvent{
		Kind:        queue.KindContact,
		To:          []string{m.inbox},
		ReplyTo:     msg.Email,
		Subject:     "New message from the contact form",
		Text:        text,
		Attachments: atts,
		CreatedAt:   m.now().UTC(),
	})
}
