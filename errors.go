package auth

import (
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials  = goerrors.TextCodeInvalidCredentials
	TextCodeUnauthenticated     = "UNAUTHENTICATED"
	TextCodeInvalidToken        = "INVALID_TOKEN"
	TextCodeInvalidConfirmation = "INVALID_CONFIRMATION"
	TextCodeInsufficientRole    = "INSUFFICIENT_ROLE"
	TextCodeNotOwner            = "NOT_OWNER"
	TextCodeNotFound            = "NOT_FOUND"
	TextCodeTokenExpired        = goerrors.TextCodeTokenExpired
	TextCodeTokenAlreadyUsed    = goerrors.TextCodeTokenAlreadyUsed
	TextCodeMalformedHash       = "MALFORMED_HASH"
	TextCodeDuplicateEmail      = "DuplicateEmail"
	TextCodeEmailNotConfirmed   = "EMAIL_NOT_CONFIRMED"
	TextCodeInvalidResetToken   = "INVALID_RESET_TOKEN"
)

// ErrInvalidCredentials is returned for any failed login: unknown user,
// wrong password or an account that is cooling down.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthenticated is returned when no identity is attached to a request
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidToken covers tampered, expired and foreign tokens alike
var ErrInvalidToken = goerrors.New("invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidConfirmation is returned when an email confirmation fails
var ErrInvalidConfirmation = goerrors.New("invalid or expired confirmation link", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidConfirmation).
	WithCode(goerrors.CodeUnauthorized)

// ErrInsufficientRole is returned when the principal holds none of the allowed roles
var ErrInsufficientRole = goerrors.New("insufficient role for this operation", goerrors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientRole).
	WithCode(goerrors.CodeForbidden)

// ErrNotOwner is returned when the principal does not own the resource
var ErrNotOwner = goerrors.New("resource belongs to another user", goerrors.CategoryAuthz).
	WithTextCode(TextCodeNotOwner).
	WithCode(goerrors.CodeForbidden)

// ErrNotFound is returned by stores when a record does not exist
var ErrNotFound = goerrors.New("record not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrTokenExpired is returned when a one-time token is past its lifetime
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenAlreadyUsed is returned when a one-time token was consumed before
var ErrTokenAlreadyUsed = goerrors.New("token has already been used", goerrors.CategoryConflict).
	WithTextCode(TextCodeTokenAlreadyUsed).
	WithCode(goerrors.CodeConflict)

// ErrMalformedHash signals a corrupt stored password record
var ErrMalformedHash = goerrors.New("malformed password hash record", goerrors.CategoryInternal).
	WithTextCode(TextCodeMalformedHash).
	WithCode(goerrors.CodeInternal)

// ErrEmailNotConfirmed is returned on login when confirmation is required
var ErrEmailNotConfirmed = goerrors.New("email address has not been confirmed", goerrors.CategoryAuth).
	WithTextCode(TextCodeEmailNotConfirmed).
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateEmail is returned when registering an email twice
var ErrDuplicateEmail = goerrors.NewValidation("registration failed", goerrors.FieldError{
	Field:   TextCodeDuplicateEmail,
	Message: "email is already registered",
}).WithTextCode(TextCodeDuplicateEmail).WithCode(goerrors.CodeBadRequest)

// ErrInvalidResetToken is returned for unknown users and bad, expired or
// used reset tokens alike
var ErrInvalidResetToken = goerrors.NewValidation("password reset failed", goerrors.FieldError{
	Field:   "token",
	Message: "invalid or expired token",
}).WithTextCode(TextCodeInvalidResetToken).WithCode(goerrors.CodeBadRequest)

// ErrEmptyPassword is returned when hashing an empty password
var ErrEmptyPassword = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(goerrors.TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// Annotate returns a copy of base carrying meta and the cause message. The
// copy wraps base, so errors.Is(err, base) still holds; sentinels are never
// mutated.
func Annotate(base *goerrors.Error, cause error, meta map[string]any) *goerrors.Error {
	clone := base.Clone()
	clone.Source = base

	if cause != nil {
		if meta == nil {
			meta = map[string]any{}
		}
		meta["error"] = cause.Error()
	}

	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}

	return clone
}

// ValidationFromOzzo converts ozzo validation errors into a validation
// error with one field entry per failing rule. Other errors are wrapped as
// internal.
func ValidationFromOzzo(err error, message string) *goerrors.Error {
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if !goerrors.As(err, &verrs) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "validation failed unexpectedly")
	}

	keys := make([]string, 0, len(verrs))
	for k := range verrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]goerrors.FieldError, 0, len(keys))
	for _, k := range keys {
		if verrs[k] == nil {
			continue
		}
		fields = append(fields, goerrors.FieldError{Field: k, Message: verrs[k].Error()})
	}

	return goerrors.NewValidation(message, fields...).WithCode(goerrors.CodeBadRequest)
}
