package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-blog-auth"
)

// UpdatePasswordHashSQL replaces the password record of one user
var UpdatePasswordHashSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"updated_at" = ?
WHERE
	"usr"."id" = ?
RETURNING *;`

// Store is the bun implementation of auth.UserStore. User records go
// through a go-repository-bun repository; tokens, roles and login tracking
// use bun queries directly.
type Store struct {
	db    bun.IDB
	root  *bun.DB
	users repository.Repository[*auth.User]
}

var _ auth.UserStore = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, root: db, users: NewUsersRepository(db)}
}

// NewUsersRepository builds the user repository. Identifier lookups match
// the normalized email.
func NewUsersRepository(db *bun.DB) repository.Repository[*auth.User] {
	return repository.NewRepository[*auth.User](db, repository.ModelHandlers[*auth.User]{
		NewRecord: func() *auth.User { return &auth.User{} },
		GetID: func(u *auth.User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *auth.User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "normalized_email"
		},
	})
}

// DB returns the database handle the store is bound to
func (s *Store) DB() bun.IDB {
	return s.db
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx auth.UserStore) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// already bound to a transaction
	if _, ok := s.db.(bun.Tx); ok {
		return fn(ctx, s)
	}

	return s.root.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{db: tx, root: s.root, users: s.users})
	})
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	record, err := s.users.GetByIDTx(ctx, s.db, id.String())
	if err != nil {
		return nil, notFoundOr(err, map[string]any{"id": id.String()})
	}
	return record, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	normalized := auth.NormalizeEmail(email)
	record, err := s.users.GetByIdentifierTx(ctx, s.db, normalized)
	if err != nil {
		return nil, notFoundOr(err, map[string]any{"email": normalized})
	}
	return record, nil
}

func (s *Store) CreateUser(ctx context.Context, user *auth.User) (*auth.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.NormalizedEmail = auth.NormalizeEmail(user.Email)

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	created, err := s.users.CreateTx(ctx, s.db, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, auth.Annotate(auth.ErrDuplicateEmail, err, nil)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert user")
	}
	return created, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := s.users.RawTx(ctx, s.db, UpdatePasswordHashSQL, hash, time.Now(), id.String())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "update failed")
	}
	if len(res) == 0 {
		return auth.Annotate(auth.ErrNotFound, nil, map[string]any{"id": id.String()})
	}
	return nil
}

func (s *Store) MarkEmailConfirmed(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.NewUpdate().
		Model((*auth.User)(nil)).
		Set("email_confirmed = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return affectedOne(res, err, id)
}

func (s *Store) AddRole(ctx context.Context, id uuid.UUID, role auth.Role) error {
	_, err := s.db.NewInsert().
		Model(&auth.UserRoleAssignment{
			UserID:    id,
			Role:      role,
			CreatedAt: time.Now(),
		}).
		On("CONFLICT (user_id, role) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to add role")
	}
	return nil
}

func (s *Store) GetRoles(ctx context.Context, id uuid.UUID) ([]auth.Role, error) {
	var assignments []auth.UserRoleAssignment
	err := s.db.NewSelect().
		Model(&assignments).
		Where("?TableAlias.user_id = ?", id).
		Order("role ASC").
		Scan(ctx)
	if err != nil && !goerrors.Is(err, sql.ErrNoRows) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load roles")
	}

	roles := make([]auth.Role, 0, len(assignments))
	for _, a := range assignments {
		if a.Role.IsValid() {
			roles = append(roles, a.Role)
		}
	}
	return roles, nil
}

func (s *Store) CreateToken(ctx context.Context, token *auth.UserToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	if _, err := s.db.NewInsert().Model(token).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert token")
	}
	return nil
}

// ConsumeToken finds the token and marks it consumed. Used tokens report
// ErrTokenAlreadyUsed and stale ones ErrTokenExpired.
func (s *Store) ConsumeToken(ctx context.Context, userID uuid.UUID, purpose auth.TokenPurpose, tokenHash string, now time.Time) (*auth.UserToken, error) {
	token := &auth.UserToken{}
	err := s.db.NewSelect().
		Model(token).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.purpose = ?", purpose).
		Where("?TableAlias.token_hash = ?", tokenHash).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, map[string]any{"purpose": string(purpose)})
	}

	if token.ConsumedAt != nil {
		return nil, auth.ErrTokenAlreadyUsed
	}

	if token.Expired(now) {
		return nil, auth.ErrTokenExpired
	}

	res, err := s.db.NewUpdate().
		Model((*auth.UserToken)(nil)).
		Set("consumed_at = ?", now).
		Where("?TableAlias.id = ?", token.ID).
		Where("?TableAlias.consumed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume token")
	}

	// lost a race with a concurrent consumer
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, auth.ErrTokenAlreadyUsed
	}

	token.ConsumedAt = &now
	return token, nil
}

func (s *Store) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	now := time.Now()
	attempts := user.LoginAttempts + 1

	_, err := s.db.NewUpdate().
		Model((*auth.User)(nil)).
		Set("login_attempts = ?", attempts).
		Set("login_attempt_at = ?", now).
		Where("?TableAlias.id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		return err
	}

	user.LoginAttempts = attempts
	user.LoginAttemptAt = &now
	return nil
}

func (s *Store) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	loggedInAt := time.Now()
	_, err := s.db.NewUpdate().
		Model((*auth.User)(nil)).
		Set("loggedin_at = ?", loggedInAt).
		Set("login_attempt_at = NULL").
		Set("login_attempts = 0").
		Where("?TableAlias.id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		return err
	}

	user.LoggedInAt = &loggedInAt
	user.LoginAttempts = 0
	user.LoginAttemptAt = nil
	return nil
}

func notFoundOr(err error, meta map[string]any) error {
	if repository.IsRecordNotFound(err) || goerrors.Is(err, sql.ErrNoRows) {
		return auth.Annotate(auth.ErrNotFound, nil, meta)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "query failed")
}

func affectedOne(res sql.Result, err error, id uuid.UUID) error {
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "update failed")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.Annotate(auth.ErrNotFound, nil, map[string]any{"id": id.String()})
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if goerrors.IsCategory(err, goerrors.CategoryConflict) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
