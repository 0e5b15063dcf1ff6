package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

func (p InitializePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, emailRules...),
	)
}

// InitializePasswordResetResponse is only visible to in-process callers.
// The HTTP surface answers the same way whether a link was sent or not.
type InitializePasswordResetResponse struct {
	Email      string
	Dispatched bool
}

type InitializePasswordResetHandler struct {
	manager      *UserManager
	mailer       EmailDispatcher
	links        LinkBuilder
	activity     ActivitySink
	logger       Logger
	emailTimeout time.Duration
}

func NewInitializePasswordResetHandler(manager *UserManager, mailer EmailDispatcher, links LinkBuilder) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		manager:      manager,
		mailer:       mailer,
		links:        links,
		activity:     noopActivitySink{},
		logger:       defLogger{},
		emailTimeout: DefaultEmailTimeout,
	}
}

func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	h.logger = normalizeLogger(logger)
	return h
}

func (h *InitializePasswordResetHandler) WithEmailTimeout(d time.Duration) *InitializePasswordResetHandler {
	h.emailTimeout = d
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password reset initialization")
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return ValidationFromOzzo(err, "invalid password reset request")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	resp := &InitializePasswordResetResponse{Email: NormalizeEmail(event.Email)}

	var user *User
	var token string

	err := h.manager.InTx(ctx, func(ctx context.Context, tx *UserManager) error {
		var err error
		user, err = tx.FindByEmail(ctx, event.Email)
		if err != nil {
			// unknown accounts are part of the expected flow
			if goerrors.IsNotFound(err) {
				user = nil
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		if !user.EmailConfirmed {
			h.logger.Info("password reset skipped for unconfirmed account", "user_id", user.ID)
			user = nil
			return nil
		}

		token, err = tx.GeneratePasswordResetToken(ctx, user)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	if user != nil {
		recordActivity(ctx, h.activity, h.logger, ActivityEventPasswordResetRequested, user.ID.String(), nil)

		link := h.links.PasswordResetLink(user.Email, token)
		resp.Dispatched = dispatchAfterCommit(ctx, h.logger, h.emailTimeout, "password_reset", func(ctx context.Context) error {
			return normalizeDispatcher(h.mailer, h.logger).SendPasswordResetLink(ctx, user, user.Email, link)
		})
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
