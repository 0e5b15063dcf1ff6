package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

var (
	ErrTokenMismatch    = errors.New("CSRF token mismatch")
	ErrTokenMissing     = errors.New("CSRF token missing")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrSecureKeyMissing = errors.New("CSRF secure key required")
)

// DefaultTokenLength is the nonce length in bytes
const DefaultTokenLength = 32

// DefaultContextKey is the locals key holding the token for this request
const DefaultContextKey = "csrf_token"

// DefaultFormFieldName is the default name for the CSRF token form field
const DefaultFormFieldName = "_token"

// DefaultHeaderName is the default header name for CSRF tokens
const DefaultHeaderName = "X-CSRF-Token"

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	TokenLength int

	ContextKey string

	FormFieldName string

	HeaderName string

	// TokenLookup defines where to look for the token
	// Format: "form:_token,header:X-CSRF-Token"
	TokenLookup string

	ErrorHandler router.ErrorHandler

	// SuccessHandler replaces the call to the next handler when set
	SuccessHandler router.HandlerFunc

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	Expiration time.Duration

	// SecureKey signs the stateless tokens, at least 32 bytes
	SecureKey []byte

	// KeyFunc binds a token to the requester. Defaults to the client IP.
	KeyFunc func(router.Context) string
}

// TokenExtractor defines a function to extract token from request
type TokenExtractor func(router.Context) string

// New creates a new CSRF middleware. Tokens are stateless: an HMAC over a
// timestamp, a nonce and the requester key.
func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		success := next
		if cfg.SuccessHandler != nil {
			success = cfg.SuccessHandler
		}

		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			token, err := generateToken(ctx, cfg)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, token)
			ctx.Locals(cfg.ContextKey+"_field", cfg.FormFieldName)
			ctx.Locals(cfg.ContextKey+"_header", cfg.HeaderName)

			// safe methods don't require validation
			if slices.Contains(cfg.SafeMethods, strings.ToUpper(ctx.Method())) {
				return success(ctx)
			}

			if err := validateRequest(ctx, cfg); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			return success(ctx)
		}
	}
}

func validateRequest(c router.Context, cfg Config) error {
	received := extractToken(c, cfg)
	if received == "" {
		return ErrTokenMissing
	}
	return validateToken(c, cfg, received)
}

func generateToken(c router.Context, cfg Config) (string, error) {
	nonce := make([]byte, cfg.TokenLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	timestamp := time.Now().UTC().Unix()
	payload := fmt.Sprintf("%d:%s:%s", timestamp, hex.EncodeToString(nonce), cfg.KeyFunc(c))

	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(payload))

	token := payload + ":" + hex.EncodeToString(mac.Sum(nil))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func validateToken(c router.Context, cfg Config, token string) error {
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	timestampStr, nonceHex, keyFromToken, signatureHex := parts[0], parts[1], parts[2], parts[3]

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	if _, err := hex.DecodeString(nonceHex); err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return ErrTokenMismatch
	}

	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(strings.Join(parts[:3], ":")))
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(keyFromToken), []byte(cfg.KeyFunc(c))) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 {
		expiresAt := time.Unix(timestamp, 0).Add(cfg.Expiration)
		if time.Now().UTC().After(expiresAt) {
			return ErrTokenExpired
		}
	}

	return nil
}

func extractToken(c router.Context, cfg Config) string {
	for _, extractor := range getExtractors(cfg.TokenLookup, cfg.FormFieldName, cfg.HeaderName) {
		if token := extractor(c); token != "" {
			return token
		}
	}
	return ""
}

func getExtractors(tokenLookup, formField, header string) []TokenExtractor {
	if tokenLookup == "" {
		return []TokenExtractor{
			extractorFromHeader(header),
			extractorFromForm(formField),
		}
	}

	var extractors []TokenExtractor
	for _, part := range strings.Split(tokenLookup, ",") {
		part = strings.TrimSpace(part)
		if field, ok := strings.CutPrefix(part, "form:"); ok {
			extractors = append(extractors, extractorFromForm(field))
		} else if name, ok := strings.CutPrefix(part, "header:"); ok {
			extractors = append(extractors, extractorFromHeader(name))
		}
	}
	return extractors
}

func extractorFromForm(fieldName string) TokenExtractor {
	return func(c router.Context) string {
		return c.FormValue(fieldName)
	}
}

func extractorFromHeader(headerName string) TokenExtractor {
	return func(c router.Context) string {
		return c.GetString(headerName, "")
	}
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = 24 * time.Hour
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c router.Context) string {
			return "ip_" + c.IP()
		}
	}

	cfg.SecureKey = initializeSecureKey(cfg.SecureKey)

	return cfg
}

func defaultErrorHandler(c router.Context, err error) error {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return c.Status(router.StatusBadRequest).SendString(err.Error())
	case errors.Is(err, ErrTokenMismatch), errors.Is(err, ErrTokenExpired):
		return c.Status(router.StatusForbidden).SendString(err.Error())
	default:
		return c.Status(router.StatusInternalServerError).SendString("CSRF validation error")
	}
}

func initializeSecureKey(current []byte) []byte {
	if len(current) > 0 {
		if len(current) < 32 {
			panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(current)))
		}
		return current
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return key
}
