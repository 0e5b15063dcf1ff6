// Package client is a typed HTTP client for the blog auth endpoints. It
// keeps the issued token and attaches it only to allowlisted origins.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a decoded error response
type APIError struct {
	Status   int                 `json:"-"`
	Category string              `json:"category"`
	Code     int                 `json:"code"`
	TextCode string              `json:"textCode"`
	Message  string              `json:"message"`
	Fields   map[string][]string `json:"fields"`
}

func (e *APIError) Error() string {
	if e.TextCode != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.TextCode, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

type LoginResponse struct {
	Token     string    `json:"jwt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type UserInfo struct {
	Username   string `json:"username"`
	IsAdmin    bool   `json:"isAdmin"`
	CanPublish bool   `json:"canPublish"`
}

// Client calls the auth endpoints mounted under BaseURL, e.g.
// https://blog.example.com/auth
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  *TokenStore
}

type Option func(*Client)

// WithHTTPClient sets the underlying client. Its transport is wrapped.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a client. The base URL origin is always allowlisted; extra
// origins receive the token too.
func New(baseURL string, extraOrigins []string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  &TokenStore{},
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.http
	origins := append([]string{u.Scheme + "://" + u.Host}, extraOrigins...)
	hc.Transport = NewBearerTransport(hc.Transport, c.tokens, origins...)
	c.http = &hc
	return c, nil
}

// HTTPClient returns the bearer aware client for calls to other APIs of
// the same origin, such as the posts endpoints
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

func (c *Client) Token() string {
	return c.tokens.Get()
}

func (c *Client) SetToken(token string) {
	c.tokens.Set(token)
}

func (c *Client) Authenticated() bool {
	return c.tokens.Get() != ""
}

// Login stores the returned token for later requests
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	out := &LoginResponse{}
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{
		"email":    email,
		"password": password,
	}, out)
	if err != nil {
		return nil, err
	}
	c.tokens.Set(out.Token)
	return out, nil
}

func (c *Client) Register(ctx context.Context, email, name, password string) (*Profile, error) {
	out := &Profile{}
	err := c.do(ctx, http.MethodPost, "/register", map[string]string{
		"email":    email,
		"name":     name,
		"password": password,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UserInfo(ctx context.Context) (*UserInfo, error) {
	out := &UserInfo{}
	if err := c.do(ctx, http.MethodGet, "/userinfo", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Logout tells the server and drops the token. The token is dropped even
// when the server call fails, since the server keeps no session.
func (c *Client) Logout(ctx context.Context) error {
	if !c.Authenticated() {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/logout", nil, nil)
	c.tokens.Clear()
	return err
}

func (c *Client) InitPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/init-password-reset", map[string]string{"email": email}, nil)
}

func (c *Client) PasswordReset(ctx context.Context, email, token, newPassword, confirmPassword string) error {
	return c.do(ctx, http.MethodPost, "/password-reset", map[string]string{
		"email":           email,
		"token":           token,
		"newPassword":     newPassword,
		"confirmPassword": confirmPassword,
	}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return decodeError(res)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func decodeError(res *http.Response) error {
	envelope := struct {
		Error *APIError `json:"error"`
	}{}
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error == nil {
		return &APIError{Status: res.StatusCode, Message: http.StatusText(res.StatusCode)}
	}
	envelope.Error.Status = res.StatusCode
	return envelope.Error
}
