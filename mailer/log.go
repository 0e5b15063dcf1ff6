package mailer

import (
	"context"
	"sync"

	auth "github.com/goliatone/go-blog-auth"
)

// LogDispatcher writes messages to the logger instead of sending them.
// It keeps the last messages so tests and dev tooling can read the links.
type LogDispatcher struct {
	logger auth.Logger

	mu   sync.Mutex
	sent []Message
}

var _ auth.EmailDispatcher = (*LogDispatcher)(nil)

func NewLogDispatcher(logger auth.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) SendConfirmationLink(ctx context.Context, user *auth.User, email, link string) error {
	return d.record(ConfirmationMessage(user, email, link), link)
}

func (d *LogDispatcher) SendPasswordResetLink(ctx context.Context, user *auth.User, email, link string) error {
	return d.record(PasswordResetMessage(user, email, link), link)
}

func (d *LogDispatcher) record(m Message, link string) error {
	if d.logger != nil {
		d.logger.Info("email", "to", m.To, "subject", m.Subject, "link", link)
	}
	d.mu.Lock()
	d.sent = append(d.sent, m)
	d.mu.Unlock()
	return nil
}

// Sent returns a copy of the recorded messages
func (d *LogDispatcher) Sent() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Message(nil), d.sent...)
}
