package logging

import (
	"context"

	"github.com/sirupsen/logrus"

	auth "github.com/goliatone/go-blog-auth"
	"github.com/goliatone/go-blog-auth/activitymap"
)

// ActivityLogger is an auth.ActivitySink writing normalized audit records
// at info level. Login failures are logged at warn.
type ActivityLogger struct {
	logger *Logger
	opts   []activitymap.Option
}

var _ auth.ActivitySink = (*ActivityLogger)(nil)

func NewActivityLogger(logger *Logger, opts ...activitymap.Option) *ActivityLogger {
	return &ActivityLogger{logger: logger, opts: opts}
}

func (a *ActivityLogger) Record(ctx context.Context, event auth.ActivityEvent) error {
	record := activitymap.Normalize(event, a.opts...)
	entry := a.logger.entry.WithContext(ctx).WithFields(logrus.Fields(record.Fields()))

	if event.EventType == auth.ActivityEventLoginFailure {
		entry.Warn("activity")
		return nil
	}
	entry.Info("activity")
	return nil
}
