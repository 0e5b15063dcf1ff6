package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

type ConfirmEmailMessage struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (e ConfirmEmailMessage) Type() string { return "user.confirm_email" }

func (e ConfirmEmailMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, emailRules...),
		validation.Field(&e.Token, validation.Required),
	)
}

// ConfirmEmailHandler consumes a confirmation token. Every user facing
// failure is reported as ErrInvalidConfirmation.
type ConfirmEmailHandler struct {
	manager  *UserManager
	activity ActivitySink
	logger   Logger
}

func NewConfirmEmailHandler(manager *UserManager) *ConfirmEmailHandler {
	return &ConfirmEmailHandler{
		manager:  manager,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (h *ConfirmEmailHandler) WithActivitySink(sink ActivitySink) *ConfirmEmailHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *ConfirmEmailHandler) WithLogger(logger Logger) *ConfirmEmailHandler {
	h.logger = normalizeLogger(logger)
	return h
}

func (h *ConfirmEmailHandler) Execute(ctx context.Context, event ConfirmEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email confirmation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmEmailHandler) execute(ctx context.Context, event ConfirmEmailMessage) error {
	if err := event.Validate(); err != nil {
		return ErrInvalidConfirmation
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User
	err := h.manager.InTx(ctx, func(ctx context.Context, tx *UserManager) error {
		var err error
		if user, err = tx.FindByEmail(ctx, event.Email); err != nil {
			return err
		}
		return tx.ConfirmEmail(ctx, user, event.Token)
	})

	if err != nil {
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			h.logger.Error("email confirmation failed", "error", err)
			return goerrors.Wrap(err, goerrors.CategoryInternal, "email confirmation transaction failed")
		}

		switch richErr.Category {
		case goerrors.CategoryInternal, goerrors.CategoryOperation:
			h.logger.Error("email confirmation failed", "error", err)
			return richErr
		}

		h.logger.Info("email confirmation rejected", "reason", richErr.TextCode)
		return ErrInvalidConfirmation
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEventEmailConfirmed, user.ID.String(), nil)

	return nil
}
