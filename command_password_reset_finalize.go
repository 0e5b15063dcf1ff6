package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

type FinalizePasswordResetMessage struct {
	Email           string `json:"email"`
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (m FinalizePasswordResetMessage) Type() string { return "user.password_reset.finalize" }

func (m FinalizePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, emailRules...),
		validation.Field(&m.Token, validation.Required),
		validation.Field(&m.NewPassword, passwordRules...),
		validation.Field(
			&m.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(m.NewPassword)),
		),
	)
}

type FinalizePasswordResetHandler struct {
	manager  *UserManager
	activity ActivitySink
	logger   Logger
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(manager *UserManager) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		manager:  manager,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *FinalizePasswordResetHandler) WithActivitySink(sink ActivitySink) *FinalizePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	h.logger = normalizeLogger(logger)
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password reset finalization")
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return ValidationFromOzzo(err, "invalid password reset")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User
	err := h.manager.InTx(ctx, func(ctx context.Context, tx *UserManager) error {
		var err error
		if user, err = tx.FindByEmail(ctx, event.Email); err != nil {
			return err
		}
		return tx.ResetPassword(ctx, user, event.Token, event.NewPassword)
	})

	if err != nil {
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			h.logger.Error("password reset failed", "error", err)
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
		}

		switch richErr.Category {
		case goerrors.CategoryNotFound, goerrors.CategoryConflict, goerrors.CategoryValidation:
			// validation here can only be the token lifetime; the payload
			// was checked above
			h.logger.Info("password reset rejected", "reason", richErr.TextCode)
			return ErrInvalidResetToken
		default:
			h.logger.Error("password reset failed", "error", err)
			return richErr
		}
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEventPasswordResetSuccess, user.ID.String(), nil)

	return nil
}
