package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// New creates a new validator instance with custom validations registered.
// This ensures consistent validation across the application and tests.
func New() *validator.Validate {
	v := validator.New()

	// "notblank" rejects whitespace-only strings. Used for customer and
	// product ids that must have meaningful content.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true // Not a string, let other validators handle it
		}
		return strings.TrimSpace(str) != ""
	})

	// "currency" accepts an ISO-4217 style code: exactly three uppercase
	// ASCII letters. Empty strings pass; combine with required to forbid them.
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true
		}
		if str == "" {
			return true
		}
		if len(str) != 3 {
			return false
		}
		for _, r := range str {
			if r < 'A' || r > 'Z' {
				return false
			}
		}
		return true
	})

	return v
}
