package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	auth "github.com/goliatone/go-blog-auth"
)

// SendGridConfig holds the configuration for SendGrid
type SendGridConfig struct {
	Key      string
	From     string
	FromName string
	// Host overrides https://api.sendgrid.com
	Host string
}

func (c SendGridConfig) Validate() error {
	if c.Key == "" || c.From == "" {
		return errors.New("invalid SendGrid configuration")
	}
	return nil
}

// SendGridDispatcher sends account emails through SendGrid
type SendGridDispatcher struct {
	client *sendgrid.Client
	from   *mail.Email
	logger auth.Logger
}

var _ auth.EmailDispatcher = (*SendGridDispatcher)(nil)

func NewSendGridDispatcher(cfg SendGridConfig, logger auth.Logger) (*SendGridDispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sendgrid.NewSendClient(cfg.Key)
	if cfg.Host != "" {
		client.BaseURL = strings.TrimRight(cfg.Host, "/") + "/v3/mail/send"
	}
	return &SendGridDispatcher{
		client: client,
		from:   mail.NewEmail(cfg.FromName, cfg.From),
		logger: logger,
	}, nil
}

func (d *SendGridDispatcher) SendConfirmationLink(ctx context.Context, user *auth.User, email, link string) error {
	return d.send(ctx, user, ConfirmationMessage(user, email, link))
}

func (d *SendGridDispatcher) SendPasswordResetLink(ctx context.Context, user *auth.User, email, link string) error {
	return d.send(ctx, user, PasswordResetMessage(user, email, link))
}

func (d *SendGridDispatcher) send(ctx context.Context, user *auth.User, m Message) error {
	to := mail.NewEmail(displayName(user, m.To), m.To)
	message := mail.NewSingleEmail(d.from, m.Subject, to, m.Text, m.HTML)

	response, err := d.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	if d.logger != nil {
		d.logger.Debug("email sent", "provider", "sendgrid", "status", response.StatusCode, "subject", m.Subject)
	}
	return nil
}
