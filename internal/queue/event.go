// Package queue carries outbound mail over RabbitMQ.  Request handlers
// publish MailEvents to the durable mail.outbound queue and a background
// consumer hands each one to a Deliverer.
package queue

import "time"

// MailQueue is the durable queue outbound mail is published to.
const MailQueue = "mail.outbound"

// Mail kinds.
const (
	KindPasswordReset = "password_reset"
	KindContact       = "contact"
)

// MailEvent is one message to deliver.  It holds everything the sender
// needs so the consumer never queries the database.
type MailEvent struct {
	Kind        string           `json:"kind"`
	To          []string         `json:"to"`
	ReplyTo     string           `json:"reply_to,omitempty"`
	Subject     string           `json:"subject"`
	Text        string           `json:"text"`
	Attachments []MailAttachment `json:"attachments,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// MailAttachment is a base64 encoded file.
type MailAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Type     string `json:"type,omitempty"`
}
