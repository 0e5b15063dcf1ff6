package auth_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-blog-auth"
)

func newControllerApp(t *testing.T, env *testEnv, opts ...auth.AuthControllerOption) *fiber.App {
	t.Helper()
	r, app := newRouterApp(t)
	opts = append([]auth.AuthControllerOption{auth.WithControllerLogger(nopLogger{})}, opts...)
	controller := auth.NewAuthController(env.service, env.config, opts...)
	auth.RegisterAuthRoutes(r.Group("/auth"), controller)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any, token string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	return res
}

func TestController_RegisterConfirmLoginFlow(t *testing.T) {
	env := newTestEnv(t, configOverrides{requireConfirmed: true})
	app := newControllerApp(t, env)

	res := postJSON(t, app, "/auth/register", map[string]string{
		"email": "ada@example.com", "name": "Ada", "password": "secret1",
	}, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var profile auth.PublicProfile
	require.NoError(t, json.NewDecoder(res.Body).Decode(&profile))
	assert.Equal(t, auth.PublicProfile{Email: "ada@example.com", Name: "Ada"}, profile)

	// login is refused until the email is confirmed
	res = postJSON(t, app, "/auth/login", map[string]string{"email": "ada@example.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, auth.TextCodeEmailNotConfirmed, decodeErrorBody(t, res).TextCode)

	link, err := url.Parse(env.mailer.last(t, "confirm").Link)
	require.NoError(t, err)
	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/auth/confirm?"+link.RawQuery, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get(fiber.HeaderContentType), "text/html")
	page, _ := io.ReadAll(res.Body)
	assert.Contains(t, string(page), "Email confirmed")

	res = postJSON(t, app, "/auth/login", map[string]string{"email": "ada@example.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var login struct {
		JWT       string `json:"jwt"`
		ExpiresAt string `json:"expiresAt"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&login))
	assert.NotEmpty(t, login.JWT)
	assert.NotEmpty(t, login.ExpiresAt)
	assert.Empty(t, res.Cookies(), "cookies are off by default")

	req := httptest.NewRequest(http.MethodGet, "/auth/userinfo", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+login.JWT)
	res, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var info auth.UserInfo
	require.NoError(t, json.NewDecoder(res.Body).Decode(&info))
	assert.Equal(t, auth.UserInfo{Username: "Ada"}, info)

	res = postJSON(t, app, "/auth/logout", nil, login.JWT)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestController_ConfirmFailurePage(t *testing.T) {
	env := newTestEnv(t, configOverrides{})
	app := newControllerApp(t, env)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/confirm?email=ada%40example.com&token=nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	page, _ := io.ReadAll(res.Body)
	assert.Contains(t, string(page), "Confirmation failed")
	assert.Contains(t, string(page), auth.ErrInvalidConfirmation.Message)
}

func TestController_LoginFailures(t *testing.T) {
	env := newTestEnv(t, configOverrides{})
	env.registerConfirmed(t, "ada@example.com", "Ada", "secret1")
	app := newControllerApp(t, env)

	wrong := postJSON(t, app, "/auth/login", map[string]string{"email": "ada@example.com", "password": "nope!!"}, "")
	unknown := postJSON(t, app, "/auth/login", map[string]string{"email": "bob@example.com", "password": "nope!!"}, "")

	assert.Equal(t, http.StatusUnauthorized, wrong.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknown.StatusCode)
	assert.Equal(t, decodeErrorBody(t, wrong), decodeErrorBody(t, unknown))

	res := postJSON(t, app, "/auth/login", map[string]string{"email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	payload := decodeErrorBody(t, res)
	assert.Contains(t, payload.Fields, "email")
	assert.Contains(t, payload.Fields, "password")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, decodeErrorBody(t, res).Fields, "form")
}

func TestController_ProtectedRoutesNeedToken(t *testing.T) {
	env := newTestEnv(t, configOverrides{})
	app := newControllerApp(t, env)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/userinfo", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = postJSON(t, app, "/auth/logout", nil, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestController_DuplicateRegistration(t *testing.T) {
	env := newTestEnv(t, configOverrides{})
	env.registerConfirmed(t, "ada@example.com", "Ada", "secret1")
	app := newControllerApp(t, env)

	res := postJSON(t, app, "/auth/register", map[string]string{
		"email": "ADA@example.com", "name": "Ada", "password": "secret1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, decodeErrorBody(t, res).Fields, auth.TextCodeDuplicateEmail)
}

func TestController_PasswordReset(t *testing.T) {
	env := newTestEnv(t, configOverrides{})
	env.registerConfirmed(t, "ada@example.com", "Ada", "secret1")
	app := newControllerApp(t, env)

	// unknown emails get the same answer
	res := postJSON(t, app, "/auth/init-password-reset", map[string]string{"email": "nobody@example.com"}, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res = postJSON(t, app, "/auth/init-password-reset", map[string]string{"email": "ada@example.com"}, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	token := tokenFromLink(t, env.mailer.last(t, "reset").Link)
	body := map[string]string{
		"email": "ada@example.com", "token": token,
		"newPassword": "new-secret", "confirmPassword": "new-secret",
	}
	res = postJSON(t, app, "/auth/password-reset", body, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = postJSON(t, app, "/auth/password-reset", body, "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, auth.TextCodeInvalidResetToken, decodeErrorBody(t, res).TextCode)

	res = postJSON(t, app, "/auth/login", map[string]string{"email": "ada@example.com", "password": "new-secret"}, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func loginCookie(t *testing.T, res *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == auth.DefaultPrincipalKey {
			return c
		}
	}
	return nil
}

func TestController_Cookie(t *testing.T) {
	env := newTestEnv(t, configOverrides{})
	env.registerConfirmed(t, "ada@example.com", "Ada", "secret1")
	app := newControllerApp(t, env, auth.WithControllerCookie(true))

	res := postJSON(t, app, "/auth/login", map[string]string{"email": "ada@example.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	cookie := loginCookie(t, res)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.NotEmpty(t, cookie.Value)

	// the cookie alone authenticates, no Authorization header
	req := httptest.NewRequest(http.MethodGet, "/auth/userinfo", nil)
	req.AddCookie(cookie)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var info auth.UserInfo
	require.NoError(t, json.NewDecoder(res.Body).Decode(&info))
	assert.Equal(t, auth.UserInfo{Username: "Ada"}, info)

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	res, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	cleared := loginCookie(t, res)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestController_CookieIgnoredWithoutCookieMode(t *testing.T) {
	env := newTestEnv(t, configOverrides{})
	env.registerConfirmed(t, "ada@example.com", "Ada", "secret1")
	token := loginToken(t, env, "ada@example.com", "secret1")
	app := newControllerApp(t, env)

	req := httptest.NewRequest(http.MethodGet, "/auth/userinfo", nil)
	req.AddCookie(&http.Cookie{Name: auth.DefaultPrincipalKey, Value: token})
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}
