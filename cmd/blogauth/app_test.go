package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-blog-auth/config"
	"github.com/goliatone/go-blog-auth/logging"
	"github.com/goliatone/go-blog-auth/mailer"
	"github.com/goliatone/go-blog-auth/middleware/csrf"
)

func newTestApp(t *testing.T, setCookie bool) *app {
	t.Helper()
	t.Setenv("BLOGAUTH_AUTH_SIGNING_KEY", testKey)
	t.Setenv("BLOGAUTH_DATABASE_DSN", "file:"+filepath.Join(t.TempDir(), "blog.db"))
	if setCookie {
		t.Setenv("BLOGAUTH_AUTH_SET_COOKIE", "true")
	}

	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg, logging.New(logging.Options{Output: io.Discard}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func login(t *testing.T, srv *fiber.App, csrfToken string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"ada@example.com","password":"secret1"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if csrfToken != "" {
		req.Header.Set(csrf.DefaultHeaderName, csrfToken)
	}
	res, err := srv.Test(req, -1)
	require.NoError(t, err)
	return res
}

func TestApp_BearerMode(t *testing.T) {
	_, srv := newTestApp(t, false).server()

	res := login(t, srv, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, err := srv.Test(httptest.NewRequest(http.MethodGet, "/auth/csrf", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestApp_CookieModeRequiresCSRF(t *testing.T) {
	_, srv := newTestApp(t, true).server()

	res := login(t, srv, "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, err := srv.Test(httptest.NewRequest(http.MethodGet, "/auth/csrf", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))

	// unknown user, but past the CSRF check
	res = login(t, srv, body["token"])
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestNewDispatcher(t *testing.T) {
	cfg := &config.Config{}
	cfg.Mailer.Provider = "log"
	d, err := newDispatcher(cfg, logging.New(logging.Options{Output: io.Discard}))
	require.NoError(t, err)
	assert.IsType(t, &mailer.LogDispatcher{}, d)

	cfg.Mailer = config.Mailer{Provider: "sendgrid", SendGridKey: "SG.key", From: "noreply@blog.test"}
	d, err = newDispatcher(cfg, logging.New(logging.Options{Output: io.Discard}))
	require.NoError(t, err)
	assert.IsType(t, &mailer.Breaker{}, d)
}
