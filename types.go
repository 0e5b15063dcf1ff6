package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the logging contract used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetBaseURL() string
	GetConfirmationTokenTTL() time.Duration
	GetPasswordResetTokenTTL() time.Duration
	GetRequireConfirmedEmail() bool
	GetUseHashid() bool
}

// UserStore is the persistence port behind the credential store adapter.
// Lookups return a NotFound category error when the record is absent.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) (*User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	MarkEmailConfirmed(ctx context.Context, id uuid.UUID) error
	AddRole(ctx context.Context, id uuid.UUID, role Role) error
	GetRoles(ctx context.Context, id uuid.UUID) ([]Role, error)
	CreateToken(ctx context.Context, token *UserToken) error
	// ConsumeToken marks a matching, unexpired and unused token as consumed.
	ConsumeToken(ctx context.Context, userID uuid.UUID, purpose TokenPurpose, tokenHash string, now time.Time) (*UserToken, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	// RunInTx runs fn against a store bound to a single transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx UserStore) error) error
}

// EmailDispatcher delivers account links. Failures are logged by callers
// and never fail the request.
type EmailDispatcher interface {
	SendConfirmationLink(ctx context.Context, user *User, email, link string) error
	SendPasswordResetLink(ctx context.Context, user *User, email, link string) error
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println("[DBG] AUTH " + formatLogLine(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println("[INF] AUTH " + formatLogLine(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println("[WRN] AUTH " + formatLogLine(msg, args...))
}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println("[ERR] AUTH " + formatLogLine(msg, args...))
}

func formatLogLine(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(msg, "\n"))
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, " %v", args[i])
	}
	return b.String()
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
