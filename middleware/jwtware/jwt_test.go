package jwtware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-blog-auth/middleware/jwtware"
)

type ctxKey struct{}

var errBadToken = errors.New("bad token")

func staticValidator(valid string) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(token string) (any, error) {
		if token != valid {
			return nil, errBadToken
		}
		return "user-1", nil
	})
}

func newApp(cfg jwtware.Config) *fiber.App {
	var app *fiber.App
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app = fiber.New(fiber.Config{DisableStartupMessage: true})
		return app
	})
	srv.Router().Get("/", func(c router.Context) error {
		v, _ := c.Locals("user").(string)
		if fromCtx, ok := c.Context().Value(ctxKey{}).(string); ok {
			v += "|" + fromCtx
		}
		return c.SendString(v)
	}, jwtware.New(cfg))
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestJWTWare_HeaderExtraction(t *testing.T) {
	app := newApp(jwtware.Config{TokenValidator: staticValidator("good")})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	status, body := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-1", body)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	status, body = do(t, app, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, jwtware.ErrJWTMissingOrMalformed.Error(), body)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	status, _ = do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, status)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic good")
	status, _ = do(t, app, req)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestJWTWare_CookieAndQueryLookup(t *testing.T) {
	app := newApp(jwtware.Config{
		TokenValidator: staticValidator("good"),
		TokenLookup:    "header:Authorization,cookie:jwt,query:auth_token",
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "good"})
	status, body := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-1", body)

	req = httptest.NewRequest(http.MethodGet, "/?auth_token=good", nil)
	status, _ = do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
}

func TestJWTWare_OptionalMode(t *testing.T) {
	app := newApp(jwtware.Config{
		TokenValidator: staticValidator("good"),
		Optional:       true,
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	status, body := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	status, body = do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body)
}

func TestJWTWare_ContextEnricherAndListeners(t *testing.T) {
	var seen []any
	app := newApp(jwtware.Config{
		TokenValidator: staticValidator("good"),
		ContextEnricher: func(ctx context.Context, value any) context.Context {
			return context.WithValue(ctx, ctxKey{}, value)
		},
		ValidationListeners: []jwtware.ValidationListener{
			nil,
			func(c router.Context, value any) error {
				seen = append(seen, value)
				return nil
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	status, body := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-1|user-1", body)
	assert.Equal(t, []any{"user-1"}, seen)
}

func TestJWTWare_ListenerErrorUsesErrorHandler(t *testing.T) {
	app := newApp(jwtware.Config{
		TokenValidator: staticValidator("good"),
		ValidationListeners: []jwtware.ValidationListener{
			func(c router.Context, value any) error { return errors.New("blocked") },
		},
		ErrorHandler: func(c router.Context, err error) error {
			return c.Status(http.StatusTeapot).SendString(err.Error())
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	status, body := do(t, app, req)
	assert.Equal(t, http.StatusTeapot, status)
	assert.Equal(t, "blocked", body)
}

func TestJWTWare_Filter(t *testing.T) {
	app := newApp(jwtware.Config{
		TokenValidator: staticValidator("good"),
		Filter:         func(c router.Context) bool { return true },
	})

	status, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, status)
}

func TestGetDefaultConfig_RequiresValidator(t *testing.T) {
	assert.Panics(t, func() { jwtware.GetDefaultConfig() })

	cfg := jwtware.GetDefaultConfig(jwtware.Config{TokenValidator: staticValidator("x")})
	assert.Equal(t, "user", cfg.ContextKey)
	assert.Equal(t, "Bearer", cfg.AuthScheme)
	assert.Equal(t, "header:Authorization", cfg.TokenLookup)
}

func TestGetExtractors_SkipsUnknownSources(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization, bogus:x ,cookie:jwt,nothing")
	assert.Len(t, extractors, 2)
}

func TestJWTWare_CallsNextWithMockContext(t *testing.T) {
	called := false
	handler := jwtware.New(jwtware.Config{TokenValidator: staticValidator("good")})(func(ctx router.Context) error {
		called = true
		return nil
	})

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer good")
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	require.NoError(t, handler(ctx))
	assert.True(t, called)
}
