package mailer

import (
	"context"
	"errors"

	"github.com/mailgun/mailgun-go/v4"

	auth "github.com/goliatone/go-blog-auth"
)

// MailgunConfig holds the configuration for Mailgun
type MailgunConfig struct {
	Key    string
	Domain string
	From   string
	// APIBase overrides the Mailgun endpoint, e.g. the EU region
	APIBase string
}

func (c MailgunConfig) Validate() error {
	if c.Key == "" || c.Domain == "" || c.From == "" {
		return errors.New("invalid Mailgun configuration")
	}
	return nil
}

// MailgunDispatcher sends account emails through Mailgun
type MailgunDispatcher struct {
	mg     mailgun.Mailgun
	from   string
	logger auth.Logger
}

var _ auth.EmailDispatcher = (*MailgunDispatcher)(nil)

func NewMailgunDispatcher(cfg MailgunConfig, logger auth.Logger) (*MailgunDispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mg := mailgun.NewMailgun(cfg.Domain, cfg.Key)
	if cfg.APIBase != "" {
		mg.SetAPIBase(cfg.APIBase)
	}
	return &MailgunDispatcher{mg: mg, from: cfg.From, logger: logger}, nil
}

func (d *MailgunDispatcher) SendConfirmationLink(ctx context.Context, user *auth.User, email, link string) error {
	return d.send(ctx, ConfirmationMessage(user, email, link))
}

func (d *MailgunDispatcher) SendPasswordResetLink(ctx context.Context, user *auth.User, email, link string) error {
	return d.send(ctx, PasswordResetMessage(user, email, link))
}

func (d *MailgunDispatcher) send(ctx context.Context, m Message) error {
	message := d.mg.NewMessage(d.from, m.Subject, m.Text, m.To)
	message.SetHtml(m.HTML)

	_, id, err := d.mg.Send(ctx, message)
	if err != nil {
		return err
	}

	if d.logger != nil {
		d.logger.Debug("email queued", "provider", "mailgun", "id", id, "subject", m.Subject)
	}
	return nil
}
