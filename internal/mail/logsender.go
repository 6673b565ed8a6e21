package mail

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/trades-marketplace/internal/config"
	"github.com/iliyamo/trades-marketplace/internal/queue"
)

// LogSender appends each queued mail as one line to a file instead of
// sending it.  It is the development driver.
type LogSender struct {
	mu   sync.Mutex
	path string
}

func NewLogSender(path string) *LogSender { return &LogSender{path: path} }

func (l *LogSender) Deliver(_ context.Context, ev queue.MailEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	names := make([]string, 0, len(ev.Attachments))
	for _, a := range ev.Attachments {
		names = append(names, a.Filename)
	}
	at := ev.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	line := fmt.Sprintf("[%s] %s | to=%s | reply_to=%q | subject=%q | attachments=[%s] | text=%q\n",
		at.Format(time.RFC3339), ev.Kind, strings.Join(ev.To, ","), ev.ReplyTo, ev.Subject,
		strings.Join(names, ","), ev.Text)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// NewDeliverer picks the sender named by cfg.Driver.  "mailtrap" needs an
// API key; anything else falls back to the log file.
func NewDeliverer(cfg config.MailConfig) queue.Deliverer {
	if cfg.Driver == "mailtrap" {
		if cfg.APIKey != "" {
			return NewMailtrapSender(cfg)
		}
		slog.Warn("MAIL_DRIVER=mailtrap without MAILTRAP_API_KEY, writing mail to the log file", "path", cfg.LogPath)
	}
	return NewLogSender(cfg.LogPath)
}
