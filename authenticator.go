package auth

import (
	"context"
	"time"
)

// LoginResult is handed back on a successful login
type LoginResult struct {
	Token     string    `json:"jwt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Principal Principal `json:"-"`
}

// Auther logs users in and turns bearer tokens back into principals
type Auther struct {
	provider     *UserProvider
	manager      *UserManager
	tokenService TokenService
	activitySink ActivitySink
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider *UserProvider, manager *UserManager, tokens TokenService) *Auther {
	return &Auther{
		provider:     provider,
		manager:      manager,
		tokenService: tokens,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and issues a token. Unknown accounts and
// wrong passwords fail with the same ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, roles, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Info("login failed", "error", err)
		recordActivity(ctx, s.activitySink, s.logger, ActivityEventLoginFailure, "", map[string]any{
			"email": NormalizeEmail(email),
			"error": err.Error(),
		})
		return nil, err
	}

	s.upgradePasswordHash(ctx, user, password)

	principal := ToPrincipal(user, roles)
	token, expiresAt, err := s.tokenService.Issue(principal.UserID, principal.Username, principal.Roles)
	if err != nil {
		s.logger.Error("failed to issue token", "user_id", principal.UserID, "error", err)
		return nil, err
	}

	recordActivity(ctx, s.activitySink, s.logger, ActivityEventLoginSuccess, principal.UserID, map[string]any{
		"roles": RoleStrings(principal.Roles),
	})

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Principal: principal,
	}, nil
}

// upgradePasswordHash stores a record with the current algorithm and
// parameters. Failures are logged and never fail the login.
func (s *Auther) upgradePasswordHash(ctx context.Context, user *User, password string) {
	if s.manager == nil || !s.manager.NeedsRehash(user) {
		return
	}
	if err := s.manager.SetPassword(ctx, user, password); err != nil {
		s.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	recordActivity(ctx, s.activitySink, s.logger, ActivityEventPasswordRehashed, user.ID.String(), nil)
}

// PrincipalFromToken validates a bearer token and maps its claims
func (s *Auther) PrincipalFromToken(token string) (*Principal, error) {
	claims, err := s.tokenService.Validate(token)
	if err != nil {
		return nil, err
	}
	return PrincipalFromClaims(claims)
}
