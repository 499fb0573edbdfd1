package users

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	upperPattern = regexp.MustCompile(`[A-Z]`)
	lowerPattern = regexp.MustCompile(`[a-z]`)
	digitPattern = regexp.MustCompile(`[0-9]`)
)

// strengthRule is one password-strength check. Rules run in order and a
// later failure replaces an earlier message for the same field.
type strengthRule struct {
	ok  func(string) bool
	msg string
}

var strengthRules = []strengthRule{
	{upperPattern.MatchString, "Password must contain at least one uppercase letter"},
	{lowerPattern.MatchString, "Password must contain at least one lowercase letter"},
	{digitPattern.MatchString, "Password must contain at least one digit"},
	{hasSpecial, "Password must contain at least one special character"},
}

// hasSpecial reports whether s contains a rune that is not a letter, digit,
// underscore or whitespace in any script.
func hasSpecial(s string) bool {
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// Validator checks a RegistrationRequest against the field rules and the
// password-strength rules, collecting every violation.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a Validator. Field errors are keyed by JSON name.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration cannot fail: the tag name is valid and the func is non-nil.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Validate returns nil when req is acceptable, or a *ValidationError with one
// message per violated field. req is expected to be normalized already.
func (val *Validator) Validate(req RegistrationRequest) error {
	fields := make(map[string]string)

	if err := val.v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &InternalError{Op: "validate request", Err: err}
		}
		for _, fe := range verrs {
			fields[fe.Field()] = message(fe)
		}
	}

	if req.Password != "" {
		for _, rule := range strengthRules {
			if !rule.ok(req.Password) {
				fields["password"] = rule.msg
			}
		}
	}

	// Confirmation is compared only once the password itself is acceptable.
	if _, bad := fields["password"]; !bad {
		if _, bad := fields["password_confirm"]; !bad && req.Password != req.PasswordConfirm {
			fields["password_confirm"] = "Passwords do not match"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// message renders a validator.FieldError as a human-readable string.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Value is not a valid email address"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "username":
		return "May only contain letters, digits, underscores and hyphens"
	}
	return "Invalid value"
}
