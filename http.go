package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-blog-auth/middleware/jwtware"
)

// ErrorBody is the JSON envelope of error responses
type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Category goerrors.Category   `json:"category"`
	Code     int                 `json:"code"`
	TextCode string              `json:"textCode,omitempty"`
	Message  string              `json:"message"`
	Fields   map[string][]string `json:"fields,omitempty"`
}

// errorMappers turn transport errors into rich errors before the generic
// internal fallback of goerrors.MapToError applies
var errorMappers = []goerrors.ErrorMapper{mapFiberError}

func mapFiberError(err error) *goerrors.Error {
	var fe *fiber.Error
	if !goerrors.As(err, &fe) {
		return nil
	}
	return goerrors.New(fe.Message, goerrors.HTTPStatusToCategory(fe.Code)).
		WithCode(fe.Code).
		WithTextCode(goerrors.HTTPStatusToTextCode(fe.Code))
}

// NewErrorPayload maps err to the public error payload. Internal errors only
// expose a generic message.
func NewErrorPayload(err error) ErrorPayload {
	if err == nil {
		err = goerrors.New("unknown error", goerrors.CategoryInternal)
	}
	rich := goerrors.MapToError(err, errorMappers)

	payload := ErrorPayload{
		Category: rich.Category,
		Code:     rich.Code,
		TextCode: rich.TextCode,
		Message:  rich.Message,
	}

	if len(rich.ValidationErrors) > 0 {
		payload.Fields = make(map[string][]string, len(rich.ValidationErrors))
		for _, fe := range rich.ValidationErrors {
			payload.Fields[fe.Field] = append(payload.Fields[fe.Field], fe.Message)
		}
	}

	if payload.Code == 0 {
		payload.Code = statusForCategory(rich.Category)
	}

	if isInternal(rich) {
		payload.Category = goerrors.CategoryInternal
		payload.Code = goerrors.CodeInternal
		payload.Message = "internal server error"
		payload.TextCode = ""
		payload.Fields = nil
	}

	return payload
}

func isInternal(rich *goerrors.Error) bool {
	switch rich.Category {
	case goerrors.CategoryInternal, goerrors.CategoryOperation, goerrors.CategoryExternal:
		return true
	}
	return rich.Code >= goerrors.CodeInternal
}

func statusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return goerrors.CodeUnauthorized
	case goerrors.CategoryAuthz:
		return goerrors.CodeForbidden
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return goerrors.CodeBadRequest
	case goerrors.CategoryNotFound, goerrors.CategoryRouting:
		return goerrors.CodeNotFound
	case goerrors.CategoryConflict:
		return goerrors.CodeConflict
	case goerrors.CategoryRateLimit:
		return goerrors.CodeTooManyRequests
	}
	return goerrors.CodeInternal
}

// ErrorResponse writes err as a JSON error
func ErrorResponse(c router.Context, err error) error {
	payload := NewErrorPayload(err)
	return c.JSON(payload.Code, ErrorBody{Error: payload})
}

// FiberErrorHandler is meant for fiber.Config.ErrorHandler. It catches the
// errors handlers return, unknown routes included.
func FiberErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(c *fiber.Ctx, err error) error {
		payload := NewErrorPayload(err)
		if payload.Code >= goerrors.CodeInternal {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		}
		return c.Status(payload.Code).JSON(ErrorBody{Error: payload})
	}
}

// principalValidator adapts a TokenService to the bearer middleware
type principalValidator struct {
	tokens TokenService
}

func (v principalValidator) Validate(token string) (any, error) {
	claims, err := v.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	return PrincipalFromClaims(claims)
}

// BearerTokenLookup is the token lookup the bearer middleware uses. With
// cookies enabled the login cookie, named after the context key, is read
// after the configured sources.
func BearerTokenLookup(cfg Config, cookies bool) string {
	lookup := cfg.GetTokenLookup()
	if !cookies {
		return lookup
	}

	cookie := "cookie:" + principalKey(cfg)
	if lookup == "" {
		return "header:" + router.HeaderAuthorization + "," + cookie
	}
	return lookup + "," + cookie
}

// BearerMiddleware validates bearer tokens and stores the *Principal under
// the configured context key. In optional mode anonymous requests pass.
// With cookies set the login cookie is accepted as well.
func BearerMiddleware(tokens TokenService, cfg Config, optional bool, cookies ...bool) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ContextKey:     principalKey(cfg),
		TokenLookup:    BearerTokenLookup(cfg, len(cookies) > 0 && cookies[0]),
		AuthScheme:     cfg.GetAuthScheme(),
		TokenValidator: principalValidator{tokens: tokens},
		Optional:       optional,
		ErrorHandler: func(c router.Context, err error) error {
			return ErrorResponse(c, ErrInvalidToken)
		},
		ContextEnricher: func(ctx context.Context, value any) context.Context {
			if p, ok := value.(*Principal); ok {
				return WithPrincipal(ctx, p)
			}
			return ctx
		},
	})
}

func principalKey(cfg Config) string {
	if cfg != nil && cfg.GetContextKey() != "" {
		return cfg.GetContextKey()
	}
	return DefaultPrincipalKey
}

// Chain composes middlewares so the first one runs first
func Chain(mws ...router.MiddlewareFunc) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				next = mws[i](next)
			}
		}
		return next
	}
}

// Guard authorizes op for the principal found under key. Owner checks are
// not run here; use OwnerGuard for those.
func Guard(g *Gatekeeper, op Operation, key string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			p, _ := PrincipalFromRouter(c, key)
			if err := g.Authorize(op, p); err != nil {
				return ErrorResponse(c, err)
			}
			return next(c)
		}
	}
}

// ResourceLocalsKey is where OwnerGuard stores the checked resource
const ResourceLocalsKey = "resource"

// OwnerGuard authorizes op and, for owner checked operations, loads the
// resource named by the route param and compares its owner. The loaded
// resource is stored under ResourceLocalsKey.
func OwnerGuard(g *Gatekeeper, op Operation, key string, loader ResourceLoader, param string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			p, _ := PrincipalFromRouter(c, key)
			resource, err := g.AuthorizeOwner(c.Context(), op, p, loader, c.Param(param))
			if err != nil {
				return ErrorResponse(c, err)
			}
			c.Locals(ResourceLocalsKey, resource)
			return next(c)
		}
	}
}

func setCookieToken(c router.Context, name, val string, expires time.Time) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
