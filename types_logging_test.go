package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Warn(message string, args ...any)  { l.record("warn", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }

func TestFormatLogLine(t *testing.T) {
	assert.Equal(t, "login user_id=42 ok=true", formatLogLine("login\n", "user_id", 42, "ok", true))
	assert.Equal(t, "dangling key", formatLogLine("dangling", "key"))
	assert.Equal(t, "plain", formatLogLine("plain"))
}

func TestNormalizeLogger(t *testing.T) {
	assert.Equal(t, defLogger{}, normalizeLogger(nil))

	l := &captureLogger{}
	assert.Same(t, l, normalizeLogger(l))
}

func TestDispatchAfterCommit_DetachedFromCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sendErr error
	ok := dispatchAfterCommit(ctx, &captureLogger{}, time.Second, "confirmation", func(ctx context.Context) error {
		sendErr = ctx.Err()
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})

	assert.True(t, ok)
	assert.NoError(t, sendErr)
}

func TestDispatchAfterCommit_LogsFailures(t *testing.T) {
	logger := &captureLogger{}
	ok := dispatchAfterCommit(context.Background(), logger, 0, "password_reset", func(ctx context.Context) error {
		return errors.New("smtp down")
	})

	assert.False(t, ok)
	require.Len(t, logger.calls, 1)
	assert.Equal(t, "error", logger.calls[0].level)
	assert.Contains(t, logger.calls[0].args, "password_reset")
}

func TestNormalizeDispatcher_NoopWhenNil(t *testing.T) {
	logger := &captureLogger{}
	d := normalizeDispatcher(nil, logger)

	require.NoError(t, d.SendConfirmationLink(context.Background(), &User{}, "ada@example.com", "https://blog.test/auth/confirm"))
	require.NoError(t, d.SendPasswordResetLink(context.Background(), &User{}, "ada@example.com", "https://blog.test/reset-password"))
	assert.NotEmpty(t, logger.calls)
}
