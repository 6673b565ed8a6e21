package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/iliyamo/trades-marketplace/internal/config"
	"github.com/iliyamo/trades-marketplace/internal/queue"
)

// MailtrapSender delivers queued mail through the Mailtrap send API.
type MailtrapSender struct {
	apiKey     string
	apiURL     string
	fromEmail  string
	fromName   string
	httpClient *http.Client
}

func NewMailtrapSender(cfg config.MailConfig) *MailtrapSender {
	return &MailtrapSender{
		apiKey:    cfg.APIKey,
		apiURL:    cfg.APIURL,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type mailtrapAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailtrapAttachment struct {
	Content     string `json:"content"`
	Filename    string `json:"filename"`
	Type        string `json:"type,omitempty"`
	Disposition string `json:"disposition"`
}

type mailtrapRequest struct {
	From        mailtrapAddress      `json:"from"`
	To          []mailtrapAddress    `json:"to"`
	ReplyTo     *mailtrapAddress     `json:"reply_to,omitempty"`
	Subject     string               `json:"subject"`
	Text        string               `json:"text"`
	Category    string               `json:"category,omitempty"`
	Attachments []mailtrapAttachment `json:"attachments,omitempty"`
}

func (m *MailtrapSender) Deliver(ctx context.Context, ev queue.MailEvent) error {
	req := mailtrapRequest{
		From:     mailtrapAddress{Email: m.fromEmail, Name: m.fromName},
		Subject:  ev.Subject,
		Text:     ev.Text,
		Category: ev.Kind,
	}
	for _, to := range ev.To {
		req.To = append(req.To, mailtrapAddress{Email: to})
	}
	if ev.ReplyTo != "" {
		req.ReplyTo = &mailtrapAddress{Email: ev.ReplyTo}
	}
	for _, a := range ev.Attachments {
		req.Attachments = append(req.Attachments, mailtrapAttachment{
			Content: a.Content, Filename: a.Filename, Type: a.Type, Disposition: "attachment",
		})
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling email request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("mailtrap API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(errBody))
	}
	slog.Info("mail sent", "kind", ev.Kind, "to", ev.To)
	return nil
}
