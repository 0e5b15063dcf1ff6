package auth

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// AlgorithmBcrypt tags bcrypt records ($2a$, $2b$, $2y$)
const AlgorithmBcrypt = "bcrypt"

// BcryptHasher handles records issued before Argon2id became the default
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Algorithm() string { return AlgorithmBcrypt }

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	out, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}
	return string(out), nil
}

// Verify uses bcrypt's own constant time comparison
func (h *BcryptHasher) Verify(record, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(record), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, Annotate(ErrMalformedHash, err, nil)
	}
}

func (h *BcryptHasher) NeedsRehash(record string) bool {
	cost, err := bcrypt.Cost([]byte(record))
	return err != nil || cost != h.Cost
}

func isBcryptRecord(record string) bool {
	return strings.HasPrefix(record, "$2a$") ||
		strings.HasPrefix(record, "$2b$") ||
		strings.HasPrefix(record, "$2y$")
}
