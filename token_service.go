package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// MinSigningKeyLength is the smallest accepted HMAC key, in bytes
const MinSigningKeyLength = 32

// DefaultTokenExpiration is the validity window of issued tokens
const DefaultTokenExpiration = 7 * 24 * time.Hour

// TokenService issues and validates bearer tokens
type TokenService interface {
	Issue(userID, username string, roles []Role) (string, time.Time, error)
	Validate(tokenString string) (*JWTClaims, error)
}

// TokenServiceImpl implements TokenService with HS256 JWTs
type TokenServiceImpl struct {
	signingKey []byte
	expiration time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, expiration time.Duration, issuer string, audience []string, logger Logger) (*TokenServiceImpl, error) {
	if len(signingKey) < MinSigningKeyLength {
		return nil, goerrors.New(
			fmt.Sprintf("signing key must be at least %d bytes", MinSigningKeyLength),
			goerrors.CategoryInternal,
		)
	}

	if expiration <= 0 {
		expiration = DefaultTokenExpiration
	}

	var aud jwt.ClaimStrings
	if len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}

	return &TokenServiceImpl{
		signingKey: signingKey,
		expiration: expiration,
		issuer:     issuer,
		audience:   aud,
		logger:     normalizeLogger(logger),
		now:        time.Now,
	}, nil
}

// NewTokenServiceFromConfig builds the service from auth options
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		logger,
	)
}

// WithClock replaces the time source, used by tests
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// Expiration returns the validity window
func (ts *TokenServiceImpl) Expiration() time.Duration {
	return ts.expiration
}

// Issue signs a token for the user and returns it with its expiry
func (ts *TokenServiceImpl) Issue(userID, username string, roles []Role) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, goerrors.New("token subject is required", goerrors.CategoryInternal)
	}

	now := ts.now()
	expiresAt := now.Add(ts.expiration)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   userID,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name:      username,
		UserRoles: RoleStrings(roles),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, expiresAt, nil
}

// Validate checks signature, issuer, audience and expiry. Every failure is
// reported as ErrInvalidToken; the reason is only logged.
//
// Expiry is exclusive: jwt/v5 rejects a token once now reaches exp, so a
// token validated at exactly its exp second fails. Issue always sets exp to
// issued-at plus the configured expiration.
func (ts *TokenServiceImpl) Validate(tokenString string) (*JWTClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		ts.logger.Debug("token validation failed", "error", err)
		return nil, Annotate(ErrInvalidToken, err, nil)
	}

	if !token.Valid || claims.Subject == "" {
		ts.logger.Debug("token validation failed", "error", "invalid claims")
		return nil, ErrInvalidToken
	}

	return claims, nil
}
