// Package mail defines the outbound email boundary. Delivery failures are
// the caller's to handle; senders here do not retry.
package mail

import (
	"context"

	"github.com/quizzyapp/quizzy-backend/internal/logging"
)

// Message is a rendered email ready for delivery.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Mailer sends a message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to string, msg Message) error
}

// LogMailer writes outgoing mail to the log instead of delivering it. It
// stands in for a real provider in development and in tests.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, to string, msg Message) error {
	m.logger.Info(ctx, "outgoing email", "to", to, "subject", msg.Subject, "text", msg.Text)
	return nil
}
