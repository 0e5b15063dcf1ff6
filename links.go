package auth

import (
	"net/url"
	"strings"
)

// LinkBuilder renders the links mailed to users
type LinkBuilder struct {
	BaseURL     string
	ConfirmPath string
	ResetPath   string
}

// NewLinkBuilder uses the default confirm and reset paths under baseURL
func NewLinkBuilder(baseURL string) LinkBuilder {
	return LinkBuilder{
		BaseURL:     baseURL,
		ConfirmPath: "/auth/confirm",
		ResetPath:   "/reset-password",
	}
}

// ConfirmationLink points at the confirm endpoint with email and token
func (l LinkBuilder) ConfirmationLink(email, token string) string {
	return l.build(l.ConfirmPath, email, token)
}

// PasswordResetLink points at the client reset form with email and token
func (l LinkBuilder) PasswordResetLink(email, token string) string {
	return l.build(l.ResetPath, email, token)
}

func (l LinkBuilder) build(path, email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return strings.TrimRight(l.BaseURL, "/") + path + "?" + q.Encode()
}
