package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// ServiceOptions wires the auth flow controller
type ServiceOptions struct {
	Store    UserStore
	Config   Config
	Mailer   EmailDispatcher
	Logger   Logger
	Activity ActivitySink
	Policy   Policy
	Hasher   PasswordHasher
	// MaxLoginAttempts and CoolDown override the package defaults when set
	MaxLoginAttempts int
	CoolDown         time.Duration
	EmailTimeout     time.Duration
}

// Service is the auth flow controller: it composes the command handlers
// behind the operations exposed over HTTP.
type Service struct {
	auther        *Auther
	manager       *UserManager
	provider      *UserProvider
	gatekeeper    *Gatekeeper
	register      *RegisterUserHandler
	confirm       *ConfirmEmailHandler
	initReset     *InitializePasswordResetHandler
	finalizeReset *FinalizePasswordResetHandler
	logger        Logger
}

// NewService validates the options and builds every component
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Store == nil {
		return nil, goerrors.New("user store is required", goerrors.CategoryInternal)
	}
	if opts.Config == nil {
		return nil, goerrors.New("auth config is required", goerrors.CategoryInternal)
	}

	logger := normalizeLogger(opts.Logger)
	activity := normalizeActivitySink(opts.Activity)

	tokens, err := NewTokenServiceFromConfig(opts.Config, logger)
	if err != nil {
		return nil, err
	}

	manager := NewUserManagerFromConfig(opts.Store, opts.Config).WithLogger(logger)
	if opts.Hasher != nil {
		manager.WithHasher(opts.Hasher)
	}

	provider := NewUserProvider(manager).
		WithLogger(logger).
		WithRequireConfirmedEmail(opts.Config.GetRequireConfirmedEmail())
	if opts.MaxLoginAttempts != 0 || opts.CoolDown != 0 {
		maxAttempts := opts.MaxLoginAttempts
		if maxAttempts == 0 {
			maxAttempts = MaxLoginAttempts
		}
		provider.WithLockout(maxAttempts, opts.CoolDown)
	}

	policy := opts.Policy
	if policy == nil {
		policy = DefaultBlogPolicy()
	}

	links := NewLinkBuilder(opts.Config.GetBaseURL())
	mailer := normalizeDispatcher(opts.Mailer, logger)

	return &Service{
		auther: NewAuthenticator(provider, manager, tokens).
			WithLogger(logger).
			WithActivitySink(activity),
		manager:    manager,
		provider:   provider,
		gatekeeper: NewGatekeeper(policy).WithLogger(logger),
		register: NewRegisterUserHandler(manager, mailer, links).
			WithLogger(logger).
			WithActivitySink(activity).
			WithEmailTimeout(opts.EmailTimeout),
		confirm: NewConfirmEmailHandler(manager).
			WithLogger(logger).
			WithActivitySink(activity),
		initReset: NewInitializePasswordResetHandler(manager, mailer, links).
			WithLogger(logger).
			WithActivitySink(activity).
			WithEmailTimeout(opts.EmailTimeout),
		finalizeReset: NewFinalizePasswordResetHandler(manager).
			WithLogger(logger).
			WithActivitySink(activity),
		logger: logger,
	}, nil
}

func (s *Service) Gatekeeper() *Gatekeeper     { return s.gatekeeper }
func (s *Service) Authenticator() *Auther      { return s.auther }
func (s *Service) UserManager() *UserManager   { return s.manager }
func (s *Service) UserProvider() *UserProvider { return s.provider }

// LoginMessage carries login credentials
type LoginMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (m LoginMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, emailRules...),
		validation.Field(&m.Password, validation.Required),
	)
}

// Login validates the request shape and logs the user in
func (s *Service) Login(ctx context.Context, msg LoginMessage) (*LoginResult, error) {
	if err := msg.Validate(); err != nil {
		return nil, ValidationFromOzzo(err, "invalid login request")
	}
	return s.auther.Login(ctx, msg.Email, msg.Password)
}

// Register creates an account and mails the confirmation link
func (s *Service) Register(ctx context.Context, email, name, password string) (PublicProfile, error) {
	var profile PublicProfile
	err := s.register.Execute(ctx, RegisterUserMessage{
		Email:    email,
		Name:     name,
		Password: password,
		OnResponse: func(resp *RegisterUserResponse) {
			profile = resp.Profile
		},
	})
	return profile, err
}

// ConfirmEmail consumes a confirmation token
func (s *Service) ConfirmEmail(ctx context.Context, email, token string) error {
	return s.confirm.Execute(ctx, ConfirmEmailMessage{Email: email, Token: token})
}

// InitPasswordReset mails a reset link to confirmed accounts. It succeeds
// for unknown emails too.
func (s *Service) InitPasswordReset(ctx context.Context, email string) error {
	return s.initReset.Execute(ctx, InitializePasswordResetMessage{Email: email})
}

// PasswordReset stores a new password given a valid reset token
func (s *Service) PasswordReset(ctx context.Context, msg FinalizePasswordResetMessage) error {
	return s.finalizeReset.Execute(ctx, msg)
}

// Logout is stateless: issued tokens stay valid until they expire. It only
// checks that the caller is authenticated.
func (s *Service) Logout(p *Principal) error {
	if err := s.gatekeeper.Authorize(OpLogout, p); err != nil {
		return err
	}
	s.logger.Debug("logout", "user_id", p.UserID)
	return nil
}

// UserInfo is the public view of the current principal
type UserInfo struct {
	Username   string `json:"username"`
	IsAdmin    bool   `json:"isAdmin"`
	CanPublish bool   `json:"canPublish"`
}

// UserInfo describes the caller
func (s *Service) UserInfo(p *Principal) (UserInfo, error) {
	if err := s.gatekeeper.Authorize(OpUserInfo, p); err != nil {
		return UserInfo{}, err
	}
	return UserInfo{
		Username:   p.Username,
		IsAdmin:    p.IsAdmin(),
		CanPublish: p.CanPublish(),
	}, nil
}

// AssignRole grants role to the user with the given email. The caller
// needs the users.roles permission.
func (s *Service) AssignRole(ctx context.Context, p *Principal, email string, role Role) error {
	if err := s.gatekeeper.Authorize(OpManageUserRoles, p); err != nil {
		return err
	}
	return s.manager.InTx(ctx, func(ctx context.Context, tx *UserManager) error {
		user, err := tx.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		return tx.AddRole(ctx, user, role)
	})
}

// PrincipalFromToken validates a bearer token
func (s *Service) PrincipalFromToken(token string) (*Principal, error) {
	return s.auther.PrincipalFromToken(token)
}
