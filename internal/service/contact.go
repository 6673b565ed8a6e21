package service

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxContactAttachments bounds the decoded size of all attachments of one
// contact message.
const MaxContactAttachments = 10 << 20

// ContactMessage is a message sent through the public contact form.
type ContactMessage struct {
	Name        string
	Phone       string
	Email       string
	Message     string
	Attachments []Attachment
}

// Attachment is a file attached to a contact message.  Content is standard
// base64 without any data URL prefix.
type Attachment struct {
	Filename string
	Content  string
	Type     string
}

// ContactService forwards contact form messages to the site inbox.
type ContactService struct {
	mailer Mailer
}

func NewContactService(mailer Mailer) *ContactService { return &ContactService{mailer: mailer} }

// Send normalizes the attachments of msg and hands it to the mailer.
// Attachments may arrive as data URLs ("data:image/png;base64,....").
func (s *ContactService) Send(ctx context.Context, msg ContactMessage) error {
	total := 0
	for i, a := range msg.Attachments {
		content := a.Content
		if strings.HasPrefix(content, "data:") {
			if _, after, ok := strings.Cut(content, ","); ok {
				content = after
			}
		}
		raw, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return BadRequest("attachment " + a.Filename + " is not valid base64")
		}
		total += len(raw)
		if total > MaxContactAttachments {
			return BadRequest("attachments exceed the 10 MiB limit")
		}
		msg.Attachments[i].Content = content
		msg.Attachments[i].Type = mimetype.Detect(raw).String()
	}
	if err := s.mailer.SendContactMessage(ctx, msg); err != nil {
		return Internal("send contact message", err)
	}
	return nil
}
