package users_test

import (
	"strings"
	"testing"

	"github.com/jmerrifield20/accounts/internal/users"
)

func TestValidate(t *testing.T) {
	v := users.NewValidator()

	cases := []struct {
		name   string
		mutate func(r *users.RegistrationRequest)
		want   map[string]string // field → message; "" means any message
	}{
		{"valid", func(r *users.RegistrationRequest) {}, nil},
		{"username optional", func(r *users.RegistrationRequest) { r.Username = "" }, nil},
		{"missing email", func(r *users.RegistrationRequest) { r.Email = "" },
			map[string]string{"email": "This field is required"}},
		{"bad email", func(r *users.RegistrationRequest) { r.Email = "nope" },
			map[string]string{"email": "Value is not a valid email address"}},
		{"username too short", func(r *users.RegistrationRequest) { r.Username = "ab" },
			map[string]string{"username": "Must be at least 3 characters"}},
		{"username bad chars", func(r *users.RegistrationRequest) { r.Username = "al ice!" },
			map[string]string{"username": "May only contain letters, digits, underscores and hyphens"}},
		{"password too long", func(r *users.RegistrationRequest) {
			r.Password = "Aa1!" + strings.Repeat("x", 97)
			r.PasswordConfirm = r.Password
		}, map[string]string{"password": "Must be at most 100 characters"}},
		{"no uppercase", func(r *users.RegistrationRequest) {
			r.Password, r.PasswordConfirm = "str0ng!pass", "str0ng!pass"
		}, map[string]string{"password": "Password must contain at least one uppercase letter"}},
		{"no digit", func(r *users.RegistrationRequest) {
			r.Password, r.PasswordConfirm = "Strong!Pass", "Strong!Pass"
		}, map[string]string{"password": "Password must contain at least one digit"}},
		{"no special", func(r *users.RegistrationRequest) {
			r.Password, r.PasswordConfirm = "Str0ngPass", "Str0ngPass"
		}, map[string]string{"password": "Password must contain at least one special character"}},
		{"last violation wins", func(r *users.RegistrationRequest) {
			r.Password, r.PasswordConfirm = "short1", "short1"
		}, map[string]string{
			"password":         "Password must contain at least one special character",
			"password_confirm": "Must be at least 8 characters",
		}},
		{"vertical tab is not special", func(r *users.RegistrationRequest) {
			r.Password, r.PasswordConfirm = "Password1\v", "Password1\v"
		}, map[string]string{"password": "Password must contain at least one special character"}},
		{"no-break space is not special", func(r *users.RegistrationRequest) {
			r.Password, r.PasswordConfirm = "Password1\u00a0", "Password1\u00a0"
		}, map[string]string{"password": "Password must contain at least one special character"}},
		{"ideographic space is not special", func(r *users.RegistrationRequest) {
			r.Password, r.PasswordConfirm = "Password1\u3000x", "Password1\u3000x"
		}, map[string]string{"password": "Password must contain at least one special character"}},
		{"accented letter is not special", func(r *users.RegistrationRequest) {
			r.Password, r.PasswordConfirm = "Password1é", "Password1é"
		}, map[string]string{"password": "Password must contain at least one special character"}},
		{"non-ascii symbol is special", func(r *users.RegistrationRequest) {
			r.Password, r.PasswordConfirm = "Password1€", "Password1€"
		}, nil},
		{"short confirm reported with bad password", func(r *users.RegistrationRequest) {
			r.Password, r.PasswordConfirm = "weakpass", "abc"
		}, map[string]string{
			"password":         "",
			"password_confirm": "Must be at least 8 characters",
		}},
		{"long confirm", func(r *users.RegistrationRequest) {
			r.PasswordConfirm = strings.Repeat("x", 101)
		}, map[string]string{"password_confirm": "Must be at most 100 characters"}},
		{"mismatch", func(r *users.RegistrationRequest) { r.PasswordConfirm = "Str0ng!Pas" },
			map[string]string{"password_confirm": "Passwords do not match"}},
		{"missing confirm", func(r *users.RegistrationRequest) { r.PasswordConfirm = "" },
			map[string]string{"password_confirm": "This field is required"}},
		{"missing names", func(r *users.RegistrationRequest) { r.FirstName, r.LastName = "", "" },
			map[string]string{"first_name": "This field is required", "last_name": "This field is required"}},
		{"long phone", func(r *users.RegistrationRequest) { r.PhoneNumber = strings.Repeat("1", 21) },
			map[string]string{"phone_number": "Must be at most 20 characters"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			err := v.Validate(req.Normalize())

			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			fields := validationFields(t, err)
			if len(fields) != len(tc.want) {
				t.Errorf("fields = %v, want %v", fields, tc.want)
			}
			for k, msg := range tc.want {
				got, ok := fields[k]
				if !ok {
					t.Errorf("missing error for %s", k)
					continue
				}
				if msg != "" && got != msg {
					t.Errorf("%s = %q, want %q", k, got, msg)
				}
			}
		})
	}
}

func TestValidationError_message(t *testing.T) {
	err := &users.ValidationError{Fields: map[string]string{
		"password": "too weak",
		"email":    "required",
	}}
	want := "validation failed: email: required; password: too weak"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
