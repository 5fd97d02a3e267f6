package accounts

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

type registerForm struct {
	Email    string `validate:"required,mailbox"`
	Password string `validate:"required,min=12,max=255"`
}

// newValidator returns a validator with the mailbox tag registered.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("mailbox", func(fl validator.FieldLevel) bool {
		return IsMailbox(fl.Field().String())
	})
	return v
}

// IsMailbox reports whether address has a non-empty local part and a
// non-empty domain separated by '@'. Dotless domains such as localhost are
// accepted.
func IsMailbox(address string) bool {
	at := strings.LastIndexByte(address, '@')
	if at <= 0 || at == len(address)-1 {
		return false
	}
	for _, r := range address {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// validateRegistration checks the email before the password so the first
// failing rule decides the error kind.
func validateRegistration(v *validator.Validate, in RegisterInput) error {
	err := v.Struct(registerForm{Email: in.Email, Password: in.Password})
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ErrInvalidRequest
	}
	for _, fieldErr := range fieldErrs {
		if fieldErr.Field() == "Email" {
			return ErrInvalidEmail
		}
	}
	return ErrInvalidPassword
}
