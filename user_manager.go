package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// OneTimeTokenLength is the length of raw confirmation and reset tokens
const OneTimeTokenLength = 32

const (
	DefaultConfirmationTokenTTL  = 24 * time.Hour
	DefaultPasswordResetTokenTTL = 24 * time.Hour
)

// UserManager is the credential store adapter. It wraps a UserStore with
// password hashing and one-time token handling.
type UserManager struct {
	store           UserStore
	hasher          PasswordHasher
	logger          Logger
	now             func() time.Time
	confirmationTTL time.Duration
	resetTTL        time.Duration
	useHashid       bool
}

// NewUserManager creates a manager over store using the default hasher
func NewUserManager(store UserStore) *UserManager {
	return &UserManager{
		store:           store,
		hasher:          NewDefaultPasswordHasher(),
		logger:          defLogger{},
		now:             time.Now,
		confirmationTTL: DefaultConfirmationTokenTTL,
		resetTTL:        DefaultPasswordResetTokenTTL,
	}
}

// NewUserManagerFromConfig applies token lifetimes and id options from cfg
func NewUserManagerFromConfig(store UserStore, cfg Config) *UserManager {
	m := NewUserManager(store)
	if ttl := cfg.GetConfirmationTokenTTL(); ttl > 0 {
		m.confirmationTTL = ttl
	}
	if ttl := cfg.GetPasswordResetTokenTTL(); ttl > 0 {
		m.resetTTL = ttl
	}
	m.useHashid = cfg.GetUseHashid()
	return m
}

func (m *UserManager) WithHasher(h PasswordHasher) *UserManager {
	if h != nil {
		m.hasher = h
	}
	return m
}

func (m *UserManager) WithLogger(l Logger) *UserManager {
	m.logger = normalizeLogger(l)
	return m
}

func (m *UserManager) WithClock(now func() time.Time) *UserManager {
	if now != nil {
		m.now = now
	}
	return m
}

// WithHashid derives user ids from the email instead of random UUIDs
func (m *UserManager) WithHashid(enabled bool) *UserManager {
	m.useHashid = enabled
	return m
}

// Hasher returns the password hasher in use
func (m *UserManager) Hasher() PasswordHasher {
	return m.hasher
}

// Store returns the underlying store
func (m *UserManager) Store() UserStore {
	return m.store
}

// InTx runs fn with a manager bound to a single transaction
func (m *UserManager) InTx(ctx context.Context, fn func(ctx context.Context, tx *UserManager) error) error {
	return m.store.RunInTx(ctx, func(ctx context.Context, store UserStore) error {
		c := *m
		c.store = store
		return fn(ctx, &c)
	})
}

// FindByEmail looks a user up by normalized email
func (m *UserManager) FindByEmail(ctx context.Context, email string) (*User, error) {
	return m.store.FindByEmail(ctx, NormalizeEmail(email))
}

// FindByID looks a user up by its string id
func (m *UserManager) FindByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, Annotate(ErrNotFound, err, map[string]any{"id": id})
	}
	return m.store.FindByID(ctx, uid)
}

// CreateUser hashes password, stores the user and grants the default role.
// A taken email yields ErrDuplicateEmail.
func (m *UserManager) CreateUser(ctx context.Context, user *User, password string) (*User, error) {
	hash, err := m.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user.Email = strings.TrimSpace(user.Email)
	user.NormalizedEmail = NormalizeEmail(user.Email)
	user.PasswordHash = hash

	if user.ID == uuid.Nil {
		user.ID = m.newUserID(user.NormalizedEmail)
	}

	if _, err := m.store.FindByEmail(ctx, user.NormalizedEmail); err == nil {
		return nil, ErrDuplicateEmail
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}

	created, err := m.store.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := m.store.AddRole(ctx, created.ID, DefaultRole); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to assign default role")
	}

	return created, nil
}

func (m *UserManager) newUserID(normalizedEmail string) uuid.UUID {
	if m.useHashid {
		if id, err := hashid.NewUUID(normalizedEmail); err == nil {
			return id
		}
		m.logger.Warn("hashid generation failed, falling back to random id")
	}
	return uuid.New()
}

// VerifyPassword checks password against the stored record. A corrupt
// record is returned as ErrMalformedHash.
func (m *UserManager) VerifyPassword(user *User, password string) (bool, error) {
	if user == nil || user.PasswordHash == "" {
		return false, ErrMalformedHash
	}
	return m.hasher.Verify(user.PasswordHash, password)
}

// NeedsRehash reports whether the user's record should be upgraded
func (m *UserManager) NeedsRehash(user *User) bool {
	return user != nil && m.hasher.NeedsRehash(user.PasswordHash)
}

// SetPassword hashes and stores a new password
func (m *UserManager) SetPassword(ctx context.Context, user *User, password string) error {
	hash, err := m.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := m.store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store password hash")
	}
	user.PasswordHash = hash
	return nil
}

func (m *UserManager) AddRole(ctx context.Context, user *User, role Role) error {
	if !role.IsValid() {
		return goerrors.NewValidation("unknown role", goerrors.FieldError{
			Field:   "role",
			Message: "must be one of " + joinRoles(GetAllRoles()),
			Value:   string(role),
		}).WithCode(goerrors.CodeBadRequest)
	}
	return m.store.AddRole(ctx, user.ID, role)
}

func (m *UserManager) GetRoles(ctx context.Context, user *User) ([]Role, error) {
	return m.store.GetRoles(ctx, user.ID)
}

// GenerateEmailConfirmationToken stores a confirmation token for user and
// returns the raw value to be mailed
func (m *UserManager) GenerateEmailConfirmationToken(ctx context.Context, user *User) (string, error) {
	return m.issueToken(ctx, user, PurposeEmailConfirmation, m.confirmationTTL)
}

// ConfirmEmail consumes the confirmation token and marks the email confirmed
func (m *UserManager) ConfirmEmail(ctx context.Context, user *User, token string) error {
	if _, err := m.consumeToken(ctx, user, PurposeEmailConfirmation, token); err != nil {
		return err
	}
	if err := m.store.MarkEmailConfirmed(ctx, user.ID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm email")
	}
	user.EmailConfirmed = true
	return nil
}

// GeneratePasswordResetToken stores a reset token for user and returns the
// raw value to be mailed
func (m *UserManager) GeneratePasswordResetToken(ctx context.Context, user *User) (string, error) {
	return m.issueToken(ctx, user, PurposePasswordReset, m.resetTTL)
}

// ResetPassword consumes the reset token and stores the new password
func (m *UserManager) ResetPassword(ctx context.Context, user *User, token, newPassword string) error {
	if _, err := m.consumeToken(ctx, user, PurposePasswordReset, token); err != nil {
		return err
	}
	return m.SetPassword(ctx, user, newPassword)
}

func (m *UserManager) issueToken(ctx context.Context, user *User, purpose TokenPurpose, ttl time.Duration) (string, error) {
	raw, err := gonanoid.New(OneTimeTokenLength)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate token")
	}

	now := m.now()
	token := &UserToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Purpose:   purpose,
		TokenHash: HashOneTimeToken(raw),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := m.store.CreateToken(ctx, token); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store token")
	}

	return raw, nil
}

func (m *UserManager) consumeToken(ctx context.Context, user *User, purpose TokenPurpose, raw string) (*UserToken, error) {
	if user == nil || strings.TrimSpace(raw) == "" {
		return nil, ErrNotFound
	}
	return m.store.ConsumeToken(ctx, user.ID, purpose, HashOneTimeToken(raw), m.now())
}

// HashOneTimeToken is the stored form of a raw one-time token
func HashOneTimeToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
