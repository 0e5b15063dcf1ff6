package mailer

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	auth "github.com/goliatone/go-blog-auth"
)

// BreakerSettings tunes the circuit breaker around a dispatcher
type BreakerSettings struct {
	Name string
	// Timeout is how long the breaker stays open
	Timeout time.Duration
	// MinRequests and FailureRatio decide when the breaker trips
	MinRequests  uint32
	FailureRatio float64
}

// Breaker stops calling a failing provider for a while. When the breaker
// is open the fallback, if any, receives the message instead.
type Breaker struct {
	next     auth.EmailDispatcher
	fallback auth.EmailDispatcher
	cb       *gobreaker.CircuitBreaker
	logger   auth.Logger
}

var _ auth.EmailDispatcher = (*Breaker)(nil)

func NewBreaker(next, fallback auth.EmailDispatcher, settings BreakerSettings, logger auth.Logger) *Breaker {
	if settings.Name == "" {
		settings.Name = "mailer"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.MinRequests == 0 {
		settings.MinRequests = 3
	}
	if settings.FailureRatio <= 0 {
		settings.FailureRatio = 0.6
	}

	b := &Breaker{next: next, fallback: fallback, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= settings.MinRequests && failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("mailer circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			}
		},
	})
	return b
}

// State reports the breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) SendConfirmationLink(ctx context.Context, user *auth.User, email, link string) error {
	return b.run(func(d auth.EmailDispatcher) error {
		return d.SendConfirmationLink(ctx, user, email, link)
	})
}

func (b *Breaker) SendPasswordResetLink(ctx context.Context, user *auth.User, email, link string) error {
	return b.run(func(d auth.EmailDispatcher) error {
		return d.SendPasswordResetLink(ctx, user, email, link)
	})
}

func (b *Breaker) run(send func(auth.EmailDispatcher) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, send(b.next)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		if b.fallback != nil {
			return send(b.fallback)
		}
	}
	return err
}
