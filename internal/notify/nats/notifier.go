// Package nats asks the notification service to send reminders over NATS.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// publisher is the subset of *nats.Conn the notifier needs
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// ReminderRequest is the message body published on each run
type ReminderRequest struct {
	RequestedAt time.Time `json:"requested_at"`
	Source      string    `json:"source"`
}

// Notifier implements notify.Notifier
type Notifier struct {
	conn    publisher
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

// Connect dials url and returns a notifier publishing on subject
func Connect(url, subject string, logger *slog.Logger) (*Notifier, *nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("deptdocs-reminders"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}
	logger.Info("NATS connected", "url", conn.ConnectedUrl(), "subject", subject)
	return New(conn, subject, logger), conn, nil
}

// New wraps an existing connection
func New(conn publisher, subject string, logger *slog.Logger) *Notifier {
	return &Notifier{conn: conn, subject: subject, logger: logger, now: time.Now}
}

// SendReminders publishes one reminder request and waits for the server to acknowledge it
func (n *Notifier) SendReminders(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(ReminderRequest{RequestedAt: n.now().UTC(), Source: "deptdocs"})
	if err != nil {
		return fmt.Errorf("encode reminder request: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", n.subject, err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", n.subject, err)
	}
	n.logger.Debug("reminder request published", "subject", n.subject)
	return nil
}
