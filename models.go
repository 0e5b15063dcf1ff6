package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel   `bun:"table:users,alias:usr"`
	ID              uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Email           string     `bun:"email,notnull" json:"email"`
	NormalizedEmail string     `bun:"normalized_email,notnull,unique" json:"-"`
	Name            string     `bun:"name,notnull" json:"name"`
	PasswordHash    string     `bun:"password_hash,notnull" json:"-"`
	EmailConfirmed  bool       `bun:"email_confirmed,notnull,default:false" json:"email_confirmed"`
	LoginAttempts   int        `bun:"login_attempts,notnull,default:0" json:"-"`
	LoginAttemptAt  *time.Time `bun:"login_attempt_at,nullzero" json:"-"`
	LoggedInAt      *time.Time `bun:"loggedin_at,nullzero" json:"-"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// PublicProfile is what registration hands back: no credentials.
type PublicProfile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Profile returns the public projection of the user
func (u *User) Profile() PublicProfile {
	return PublicProfile{Email: u.Email, Name: u.Name}
}

// UserRoleAssignment links a user with one of its roles
type UserRoleAssignment struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`
	UserID        uuid.UUID `bun:"user_id,pk,type:uuid"`
	Role          Role      `bun:"role,pk"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// TokenPurpose scopes a one-time token to a single flow
type TokenPurpose string

const (
	PurposeEmailConfirmation TokenPurpose = "email_confirmation"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// UserToken is a single-use, time-bounded token. Only the hash of the raw
// token is persisted.
type UserToken struct {
	bun.BaseModel `bun:"table:user_tokens,alias:utk"`
	ID            uuid.UUID    `bun:"id,pk,type:uuid"`
	UserID        uuid.UUID    `bun:"user_id,notnull,type:uuid"`
	Purpose       TokenPurpose `bun:"purpose,notnull"`
	TokenHash     string       `bun:"token_hash,notnull,unique"`
	ExpiresAt     time.Time    `bun:"expires_at,notnull"`
	ConsumedAt    *time.Time   `bun:"consumed_at,nullzero"`
	CreatedAt     time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Expired reports whether the token lifetime is over at now
func (t *UserToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// NormalizeEmail is the canonical form used for uniqueness and lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
