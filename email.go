package auth

import (
	"context"
	"time"
)

// DefaultEmailTimeout bounds a single dispatch after commit
const DefaultEmailTimeout = 10 * time.Second

type noopDispatcher struct {
	logger Logger
}

func (d noopDispatcher) SendConfirmationLink(_ context.Context, user *User, email, _ string) error {
	normalizeLogger(d.logger).Warn("no email dispatcher configured, confirmation link dropped", "email", email)
	return nil
}

func (d noopDispatcher) SendPasswordResetLink(_ context.Context, user *User, email, _ string) error {
	normalizeLogger(d.logger).Warn("no email dispatcher configured, reset link dropped", "email", email)
	return nil
}

func normalizeDispatcher(d EmailDispatcher, logger Logger) EmailDispatcher {
	if d == nil {
		return noopDispatcher{logger: logger}
	}
	return d
}

// dispatchAfterCommit sends with its own deadline, detached from the
// request cancellation. Failures are logged and reported as false.
func dispatchAfterCommit(ctx context.Context, logger Logger, timeout time.Duration, kind string, send func(ctx context.Context) error) bool {
	if timeout <= 0 {
		timeout = DefaultEmailTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := send(ctx); err != nil {
		normalizeLogger(logger).Error("email dispatch failed", "kind", kind, "error", err)
		return false
	}
	return true
}
