package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

type RegisterUserMessage struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	OnResponse func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate checks the message shape
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, emailRules...),
		validation.Field(&e.Password, passwordRules...),
		validation.Field(&e.Name, nameRules...),
	)
}

type RegisterUserResponse struct {
	Profile          PublicProfile
	ConfirmationSent bool
}

type RegisterUserHandler struct {
	manager      *UserManager
	mailer       EmailDispatcher
	links        LinkBuilder
	activity     ActivitySink
	logger       Logger
	emailTimeout time.Duration
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(manager *UserManager, mailer EmailDispatcher, links LinkBuilder) *RegisterUserHandler {
	return &RegisterUserHandler{
		manager:      manager,
		mailer:       mailer,
		links:        links,
		activity:     noopActivitySink{},
		logger:       defLogger{},
		emailTimeout: DefaultEmailTimeout,
	}
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	h.logger = normalizeLogger(logger)
	return h
}

func (h *RegisterUserHandler) WithEmailTimeout(d time.Duration) *RegisterUserHandler {
	h.emailTimeout = d
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during user registration")
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	if err := event.Validate(); err != nil {
		return ValidationFromOzzo(err, "invalid registration")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User
	var token string

	err := h.manager.InTx(ctx, func(ctx context.Context, tx *UserManager) error {
		var err error
		user, err = tx.CreateUser(ctx, &User{
			Email: event.Email,
			Name:  strings.TrimSpace(event.Name),
		}, event.Password)
		if err != nil {
			return err
		}

		if token, err = tx.GenerateEmailConfirmationToken(ctx, user); err != nil {
			return err
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEventRegistered, user.ID.String(), map[string]any{
		"email": user.NormalizedEmail,
	})

	link := h.links.ConfirmationLink(user.Email, token)
	sent := dispatchAfterCommit(ctx, h.logger, h.emailTimeout, "confirmation", func(ctx context.Context) error {
		return normalizeDispatcher(h.mailer, h.logger).SendConfirmationLink(ctx, user, user.Email, link)
	})

	if event.OnResponse != nil {
		event.OnResponse(&RegisterUserResponse{
			Profile:          user.Profile(),
			ConfirmationSent: sent,
		})
	}

	return nil
}
