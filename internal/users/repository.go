package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// UnitOfWork is the transactional handle passed to Store.InTx callbacks.
// It is owned by exactly one callback and must not escape it.
type UnitOfWork interface {
	InsertUser(ctx context.Context, u *User) error
	InsertProfile(ctx context.Context, p *Profile) error
}

// UserRepository persists users and profiles in PostgreSQL.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// ExistsByEmail reports whether a user with the given (normalized) email exists.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

// ExistsByUsername reports whether a user with the given username exists.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *UserRepository) exists(ctx context.Context, q string, arg any) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, q, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("exists query: %w", err)
	}
	return ok, nil
}

// InTx runs fn inside a single transaction. The transaction commits when fn
// returns nil and rolls back otherwise, including on panic and on ctx
// cancellation. Unique violations at insert or commit time are returned as
// ErrDuplicateEmail or ErrDuplicateUsername.
func (r *UserRepository) InTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, &pgUnitOfWork{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if dup := duplicateFrom(err); dup != nil {
			return dup
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByPublicID loads a user and its profile by public identifier.
func (r *UserRepository) GetByPublicID(ctx context.Context, publicID uuid.UUID) (*User, error) {
	q := `
		SELECT u.id, u.public_id, u.email, u.username, u.password_hash, u.is_active,
		       u.email_verified_at, u.created_at, u.updated_at,
		       p.id, p.public_id, p.first_name, p.last_name, p.phone_number,
		       p.bio, p.avatar_url, p.created_at, p.updated_at
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.public_id = $1`

	var (
		u                     User
		pID                   *int64
		pPublicID             *uuid.UUID
		pFirst, pLast         *string
		pPhone, pBio, pAvatar *string
		pCreatedAt            *time.Time
		pUpdatedAt            *time.Time
	)
	err := r.db.QueryRow(ctx, q, publicID).Scan(
		&u.ID, &u.PublicID, &u.Email, &u.Username, &u.PasswordHash, &u.IsActive,
		&u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt,
		&pID, &pPublicID, &pFirst, &pLast, &pPhone,
		&pBio, &pAvatar, &pCreatedAt, &pUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if pID != nil {
		u.Profile = &Profile{
			ID:          *pID,
			PublicID:    *pPublicID,
			UserID:      u.ID,
			FirstName:   deref(pFirst),
			LastName:    deref(pLast),
			PhoneNumber: pPhone,
			Bio:         pBio,
			AvatarURL:   pAvatar,
			CreatedAt:   deref(pCreatedAt),
			UpdatedAt:   pUpdatedAt,
		}
	}
	return &u, nil
}

// DeleteByPublicID deletes a user. The profile row is removed by ON DELETE CASCADE.
func (r *UserRepository) DeleteByPublicID(ctx context.Context, publicID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE public_id = $1`, publicID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks database connectivity.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// pgUnitOfWork implements UnitOfWork on a pgx transaction.
type pgUnitOfWork struct {
	tx pgx.Tx
}

// InsertUser inserts u and sets its storage-assigned ID and CreatedAt.
func (w *pgUnitOfWork) InsertUser(ctx context.Context, u *User) error {
	q := `
		INSERT INTO users (public_id, email, username, password_hash, is_active, email_verified_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := w.tx.QueryRow(ctx, q,
		u.PublicID, u.Email, u.Username, u.PasswordHash, u.IsActive, u.EmailVerifiedAt,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if dup := duplicateFrom(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// InsertProfile inserts p (UserID must be set) and sets its ID and CreatedAt.
func (w *pgUnitOfWork) InsertProfile(ctx context.Context, p *Profile) error {
	q := `
		INSERT INTO profiles (public_id, user_id, first_name, last_name, phone_number, bio, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := w.tx.QueryRow(ctx, q,
		p.PublicID, p.UserID, p.FirstName, p.LastName, p.PhoneNumber, p.Bio, p.AvatarURL,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// duplicateFrom maps a unique violation on the users table to the matching
// sentinel error. Other errors yield nil.
func duplicateFrom(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		return ErrDuplicateEmail
	case "users_username_key":
		return ErrDuplicateUsername
	}
	return nil
}

// deref returns the zero value for a NULL column.
func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
