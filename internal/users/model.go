package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account holder. ID is the storage key and never leaves the
// service; PublicID is the identifier exposed to clients.
type User struct {
	ID              int64      `json:"-"                 db:"id"`
	PublicID        uuid.UUID  `json:"id"                db:"public_id"`
	Email           string     `json:"email"             db:"email"`
	Username        *string    `json:"username"          db:"username"`
	PasswordHash    string     `json:"-"                 db:"password_hash"`
	IsActive        bool       `json:"is_active"         db:"is_active"`
	EmailVerifiedAt *time.Time `json:"email_verified_at" db:"email_verified_at"`
	CreatedAt       time.Time  `json:"created_at"        db:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"        db:"updated_at"`

	// Profile is loaded by explicit join; nil when no profile row exists.
	Profile *Profile `json:"-" db:"-"`
}

// Profile is the one-to-one extension of a User. It is created in the same
// transaction as its owner and removed by ON DELETE CASCADE.
type Profile struct {
	ID          int64      `db:"id"`
	PublicID    uuid.UUID  `db:"public_id"`
	UserID      int64      `db:"user_id"`
	FirstName   string     `db:"first_name"`
	LastName    string     `db:"last_name"`
	PhoneNumber *string    `db:"phone_number"`
	Bio         *string    `db:"bio"`
	AvatarURL   *string    `db:"avatar_url"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
}

// RegistrationRequest is the input to Registrar.Register. It only lives for
// the duration of one call.
type RegistrationRequest struct {
	Email           string `json:"email"            validate:"required,email,max=254"`
	Username        string `json:"username"         validate:"omitempty,min=3,max=50,username"`
	Password        string `json:"password"         validate:"required,min=8,max=100"`
	PasswordConfirm string `json:"password_confirm" validate:"required,min=8,max=100"`
	FirstName       string `json:"first_name"       validate:"required,min=1,max=50"`
	LastName        string `json:"last_name"        validate:"required,min=1,max=50"`
	PhoneNumber     string `json:"phone_number"     validate:"omitempty,max=20"`
}

// Normalize trims surrounding whitespace from every field except the
// passwords and lower-cases the email so uniqueness is case-insensitive.
func (r RegistrationRequest) Normalize() RegistrationRequest {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Username = strings.TrimSpace(r.Username)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	return r
}

// UserResponse is the client-facing shape of a User. It is also the value
// stored in the cache, so a cache hit needs no database round-trip.
type UserResponse struct {
	ID              uuid.UUID        `json:"id"`
	Email           string           `json:"email"`
	Username        *string          `json:"username,omitempty"`
	EmailVerifiedAt *time.Time       `json:"email_verified_at"`
	IsActive        bool             `json:"is_active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       *time.Time       `json:"updated_at"`
	Profile         *ProfileResponse `json:"profile"`
}

// ProfileResponse is the client-facing shape of a Profile.
type ProfileResponse struct {
	ID          uuid.UUID  `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	PhoneNumber *string    `json:"phone_number,omitempty"`
	Bio         *string    `json:"bio,omitempty"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// NewUserResponse builds the response representation of u and its profile.
func NewUserResponse(u *User) *UserResponse {
	resp := &UserResponse{
		ID:              u.PublicID,
		Email:           u.Email,
		Username:        u.Username,
		EmailVerifiedAt: u.EmailVerifiedAt,
		IsActive:        u.IsActive,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
	if p := u.Profile; p != nil {
		resp.Profile = &ProfileResponse{
			ID:          p.PublicID,
			FirstName:   p.FirstName,
			LastName:    p.LastName,
			PhoneNumber: p.PhoneNumber,
			Bio:         p.Bio,
			AvatarURL:   p.AvatarURL,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
	}
	return resp
}

// optional returns nil for the empty string.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
