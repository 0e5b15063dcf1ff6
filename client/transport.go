package client

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// TokenStore holds the bearer token of the current session
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

func (s *TokenStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Clear discards the token. This is the client side of logout.
func (s *TokenStore) Clear() {
	s.Set("")
}

// BearerTransport adds "Authorization: Bearer <token>" to requests whose
// origin is in the allowlist. Requests to other origins go out untouched.
type BearerTransport struct {
	Base    http.RoundTripper
	Tokens  *TokenStore
	origins map[string]struct{}
}

// NewBearerTransport allows the given origins, e.g. "https://blog.example.com".
// Scheme and host are compared case insensitively; default ports are implied.
func NewBearerTransport(base http.RoundTripper, tokens *TokenStore, origins ...string) *BearerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &BearerTransport{
		Base:    base,
		Tokens:  tokens,
		origins: make(map[string]struct{}, len(origins)),
	}
	for _, o := range origins {
		if u, err := url.Parse(strings.TrimSpace(o)); err == nil && u.Host != "" {
			t.origins[originOf(u)] = struct{}{}
		}
	}
	return t
}

// Allowed reports whether the token may be sent to u
func (t *BearerTransport) Allowed(u *url.URL) bool {
	if u == nil {
		return false
	}
	_, ok := t.origins[originOf(u)]
	return ok
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := ""
	if t.Tokens != nil {
		token = t.Tokens.Get()
	}
	if token == "" || !t.Allowed(req.URL) || req.Header.Get("Authorization") != "" {
		return t.Base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.Base.RoundTrip(clone)
}

func originOf(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" {
		switch scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		}
	}
	return scheme + "://" + host + ":" + port
}
