package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// MaxLoginAttempts is the maximun number of failed attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

const defaultCoolDown = 24 * time.Hour

// dummyPassword is hashed once so unknown users cost the same as known ones
const dummyPassword = "blog-auth-timing-equalizer"

// UserProvider verifies credentials against the user manager
type UserProvider struct {
	manager          *UserManager
	logger           Logger
	maxAttempts      int
	coolDown         time.Duration
	requireConfirmed bool
	now              func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(manager *UserManager) *UserProvider {
	return &UserProvider{
		manager:     manager,
		logger:      defLogger{},
		maxAttempts: MaxLoginAttempts,
		coolDown:    ParseWindow(CoolDownPeriod, defaultCoolDown),
		now:         time.Now,
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = normalizeLogger(l)
	return u
}

// WithLockout overrides the failed attempts threshold and its window
func (u *UserProvider) WithLockout(maxAttempts int, coolDown time.Duration) *UserProvider {
	u.maxAttempts = maxAttempts
	if coolDown > 0 {
		u.coolDown = coolDown
	}
	return u
}

// WithRequireConfirmedEmail rejects logins of unconfirmed accounts
func (u *UserProvider) WithRequireConfirmedEmail(required bool) *UserProvider {
	u.requireConfirmed = required
	return u
}

func (u *UserProvider) WithClock(now func() time.Time) *UserProvider {
	if now != nil {
		u.now = now
	}
	return u
}

// VerifyIdentity will find the user, compare the password, and return the
// user with its roles. Unknown users, wrong passwords and locked accounts
// all produce ErrInvalidCredentials.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (*User, []Role, error) {
	user, err := u.manager.FindByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			u.burnDummyVerify(password)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	now := u.now()
	if user.LoginAttemptAt != nil && WindowElapsed(*user.LoginAttemptAt, now, u.coolDown) {
		user.LoginAttempts = 0
	}

	// too many failures in the window, cool off!
	// the caller only sees invalid credentials, the lock is logged here
	if u.maxAttempts > 0 && user.LoginAttempts >= u.maxAttempts {
		u.burnDummyVerify(password)
		u.logger.Warn("login attempt on locked account", "user_id", user.ID, "attempts", user.LoginAttempts)
		return nil, nil, ErrInvalidCredentials
	}

	ok, err := u.manager.VerifyPassword(user, password)
	if err != nil {
		if errors.Is(err, ErrMalformedHash) {
			u.logger.Error("stored password hash is malformed", "user_id", user.ID, "error", err)
		} else {
			u.logger.Error("password verification failed", "user_id", user.ID, "error", err)
		}
		ok = false
	}

	if !ok {
		if err := u.manager.Store().TrackAttemptedLogin(ctx, user); err != nil {
			return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track login attempt")
		}
		return nil, nil, ErrInvalidCredentials
	}

	if u.requireConfirmed && !user.EmailConfirmed {
		return nil, nil, ErrEmailNotConfirmed
	}

	if err := u.manager.Store().TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	roles, err := u.manager.GetRoles(ctx, user)
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user roles")
	}

	return user, roles, nil
}

// FindIdentity loads a user and its roles by id, without credentials
func (u *UserProvider) FindIdentity(ctx context.Context, id string) (*User, []Role, error) {
	user, err := u.manager.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	roles, err := u.manager.GetRoles(ctx, user)
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user roles")
	}
	return user, roles, nil
}

func (u *UserProvider) burnDummyVerify(password string) {
	h := u.manager.Hasher()
	u.dummyOnce.Do(func() {
		hash, err := h.Hash(dummyPassword)
		if err != nil {
			u.logger.Error("failed to build dummy hash", "error", err)
			return
		}
		u.dummyHash = hash
	})
	if u.dummyHash != "" {
		_, _ = h.Verify(u.dummyHash, password)
	}
}
