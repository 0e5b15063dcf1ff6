// Package logging adapts logrus to auth.Logger and provides an activity
// sink that writes audit records to the log.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	auth "github.com/goliatone/go-blog-auth"
)

// Options configures the logrus logger
type Options struct {
	Level  string
	Format string // json or text
	Output io.Writer
	// Service is attached to every entry as "service"
	Service string
}

// Logger implements auth.Logger on a logrus entry
type Logger struct {
	entry *logrus.Entry
}

var _ auth.Logger = (*Logger)(nil)

// New builds a logrus backed logger. Unknown levels fall back to info.
func New(opts Options) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch opts.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	entry := logrus.NewEntry(l)
	if opts.Service != "" {
		entry = entry.WithField("service", opts.Service)
	}
	return &Logger{entry: entry}
}

// FromLogrus wraps an existing logrus logger
func FromLogrus(l *logrus.Logger) *Logger {
	return &Logger{entry: logrus.NewEntry(l)}
}

// With returns a logger carrying extra key/value pairs
func (l *Logger) With(args ...any) *Logger {
	return &Logger{entry: l.entry.WithFields(toFields(args))}
}

// Entry exposes the underlying logrus entry
func (l *Logger) Entry() *logrus.Entry {
	return l.entry
}

func (l *Logger) Debug(msg string, args ...any) {
	l.entry.WithFields(toFields(args)).Debug(msg)
}

func (l *Logger) Info(msg string, args ...any) {
	l.entry.WithFields(toFields(args)).Info(msg)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.entry.WithFields(toFields(args)).Warn(msg)
}

func (l *Logger) Error(msg string, args ...any) {
	l.entry.WithFields(toFields(args)).Error(msg)
}

var sensitiveKeys = []string{"password", "token", "jwt", "secret", "signing_key", "authorization"}

// toFields turns key/value pairs into logrus fields and masks secrets.
// A dangling key is stored under "arg".
func toFields(args []any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			fields["arg"] = args[i]
			break
		}
		value := args[i+1]
		if isSensitive(key) {
			value = "***"
		}
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		fields[key] = value
	}
	return fields
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
