// Package mailer holds auth.EmailDispatcher implementations: a logging
// dispatcher for development, Mailgun and SendGrid senders, and a circuit
// breaker that wraps any of them.
package mailer

import (
	"fmt"

	auth "github.com/goliatone/go-blog-auth"
)

const (
	SubjectConfirmation  = "Confirm your email"
	SubjectPasswordReset = "Reset your password"
)

// Message is a rendered account email
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// ConfirmationMessage renders the confirmation email
func ConfirmationMessage(user *auth.User, email, link string) Message {
	return Message{
		To:      email,
		Subject: SubjectConfirmation,
		Text:    fmt.Sprintf("Hi %s,\n\nPlease confirm your account by visiting:\n%s\n", displayName(user, email), link),
		HTML:    fmt.Sprintf(`<p>Hi %s,</p><p>Please confirm your account by <a href="%s">clicking here</a>.</p>`, displayName(user, email), link),
	}
}

// PasswordResetMessage renders the password reset email
func PasswordResetMessage(user *auth.User, email, link string) Message {
	return Message{
		To:      email,
		Subject: SubjectPasswordReset,
		Text:    fmt.Sprintf("Hi %s,\n\nReset your password by visiting:\n%s\n\nIf you did not ask for this, ignore this email.\n", displayName(user, email), link),
		HTML:    fmt.Sprintf(`<p>Hi %s,</p><p>Reset your password by <a href="%s">clicking here</a>.</p>`, displayName(user, email), link),
	}
}

func displayName(user *auth.User, email string) string {
	if user != nil && user.Name != "" {
		return user.Name
	}
	return email
}
