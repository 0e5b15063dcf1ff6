package auth

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 100
	MaxNameLength     = 200
)

var (
	emailRules    = []validation.Rule{validation.Required, is.Email}
	passwordRules = []validation.Rule{validation.Required, validation.Length(MinPasswordLength, MaxPasswordLength)}
	nameRules     = []validation.Rule{validation.Required, validation.Length(1, MaxNameLength)}
)

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}
