package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/trades-marketplace/internal/config"
	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/queue"
	"github.com/iliyamo/trades-marketplace/internal/service"
)

type capturePublisher struct {
	events []queue.MailEvent
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, ev queue.MailEvent) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, ev)
	return nil
}

func TestResetLink(t *testing.T) {
	assert.Equal(t, "http://front.test/reset-password/abc", ResetLink("http://front.test/", "abc"))
}

func TestSendPasswordResetPublishesLink(t *testing.T) {
	pub := &capturePublisher{}
	m := NewQueueMailer(pub, "http://front.test", "inbox@example.com")

	err := m.SendPasswordReset(context.Background(), model.PublicAccount{Name: "Ana", Email: "ana@example.com"}, "tok-123")
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, queue.KindPasswordReset, ev.Kind)
	assert.Equal(t, []string{"ana@example.com"}, ev.To)
	assert.Contains(t, ev.Text, "http://front.test/reset-password/tok-123")
}

func TestSendContactMessage(t *testing.T) {
	pub := &capturePublisher{}
	m := NewQueueMailer(pub, "http://front.test", "inbox@example.com")

	err := m.SendContactMessage(context.Background(), service.ContactMessage{
		Name: "Ana", Phone: "123", Email: "ana@example.com", Message: "Need a roofer",
		Attachments: []service.Attachment{{Filename: "roof.png", Content: "AAAA", Type: "image/png"}},
	})
	require.NoError(t, err)
	ev := pub.events[0]
	assert.Equal(t, []string{"inbox@example.com"}, ev.To)
	assert.Equal(t, "ana@example.com", ev.ReplyTo)
	assert.Contains(t, ev.Text, "Need a roofer")
	assert.Equal(t, "roof.png", ev.Attachments[0].Filename)

	pub.err = errors.New("broker down")
	assert.Error(t, m.SendContactMessage(context.Background(), service.ContactMessage{}))

	assert.Error(t, NewQueueMailer(pub, "http://front.test", "").SendContactMessage(context.Background(), service.ContactMessage{}))
}

func TestMailtrapSender(t *testing.T) {
	var got mailtrapRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewMailtrapSender(config.MailConfig{APIURL: srv.URL, APIKey: "key", FromEmail: "noreply@example.com", FromName: "Trades"})
	err := s.Deliver(context.Background(), queue.MailEvent{
		Kind: queue.KindContact, To: []string{"inbox@example.com"}, ReplyTo: "ana@example.com",
		Subject: "hi", Text: "body", Attachments: []queue.MailAttachment{{Filename: "a.pdf", Content: "JVBE"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer key", auth)
	assert.Equal(t, "noreply@example.com", got.From.Email)
	assert.Equal(t, "inbox@example.com", got.To[0].Email)
	require.NotNil(t, got.ReplyTo)
	assert.Equal(t, "attachment", got.Attachments[0].Disposition)
}

func TestMailtrapSenderReportsAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":["bad token"]}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewMailtrapSender(config.MailConfig{APIURL: srv.URL, APIKey: "bad"})
	err := s.Deliver(context.Background(), queue.MailEvent{To: []string{"a@example.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "bad token")
}

func TestLogSenderAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mail.log")
	s := NewLogSender(path)

	require.NoError(t, s.Deliver(context.Background(), queue.MailEvent{Kind: "contact", To: []string{"a@example.com"}, Subject: "one"}))
	require.NoError(t, s.Deliver(context.Background(), queue.MailEvent{Kind: "contact", To: []string{"b@example.com"}, Subject: "two"}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `subject="one"`)
	assert.Contains(t, lines[1], "to=b@example.com")
}

func TestNewDeliverer(t *testing.T) {
	_, isLog := NewDeliverer(config.MailConfig{Driver: "log", LogPath: "x.log"}).(*LogSender)
	assert.True(t, isLog)

	_, isLog = NewDeliverer(config.MailConfig{Driver: "mailtrap", LogPath: "x.log"}).(*LogSender)
	assert.True(t, isLog)

	_, isMailtrap := NewDeliverer(config.MailConfig{Driver: "mailtrap", APIKey: "k"}).(*MailtrapSender)
	assert.True(t, isMailtrap)
}
