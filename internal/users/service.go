package users

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/accounts/internal/cache"
	"go.uber.org/zap"
)

// DefaultCacheTTL is how long a registered user's response stays cached.
const DefaultCacheTTL = 900 * time.Second

// cacheTimeout bounds each best-effort cache call.
const cacheTimeout = 2 * time.Second

// cacheNamespace is the key part under which user responses are cached.
const cacheNamespace = "user"

// Registration outcomes reported to the metrics callback.
const (
	OutcomeCreated  = "created"
	OutcomeInvalid  = "invalid"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// userStore is the storage interface consumed by Registrar.
type userStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	InTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
	GetByPublicID(ctx context.Context, publicID uuid.UUID) (*User, error)
	DeleteByPublicID(ctx context.Context, publicID uuid.UUID) error
}

// passwordHasher is satisfied by *password.Hasher.
type passwordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
}

// userCache is satisfied by *cache.Namespaced.
type userCache interface {
	SetEX(ctx context.Context, ttl time.Duration, value []byte, parts ...string) error
	Get(ctx context.Context, parts ...string) ([]byte, error)
	Delete(ctx context.Context, parts ...string) error
}

// MetricsRecordFunc is an optional callback invoked once per Register call
// with one of the Outcome* values.
type MetricsRecordFunc func(outcome string)

// Registrar runs the account registration pipeline:
// validate → check uniqueness → hash → insert user and profile → commit → cache.
type Registrar struct {
	store     userStore
	hasher    passwordHasher
	cache     userCache
	validator *Validator
	cacheTTL  time.Duration
	onMetrics MetricsRecordFunc
	logger    *zap.Logger
}

// NewRegistrar creates a Registrar. cache may be nil to disable caching.
func NewRegistrar(store userStore, hasher passwordHasher, cache userCache, logger *zap.Logger) *Registrar {
	return &Registrar{
		store:     store,
		hasher:    hasher,
		cache:     cache,
		validator: NewValidator(),
		cacheTTL:  DefaultCacheTTL,
		logger:    logger,
	}
}

// SetCacheTTL overrides DefaultCacheTTL. Non-positive values are ignored.
func (s *Registrar) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

// SetMetricsRecord configures the metrics recording callback.
func (s *Registrar) SetMetricsRecord(fn MetricsRecordFunc) {
	s.onMetrics = fn
}

// Register creates a user and its profile atomically and returns the
// response representation.
//
// Errors: *ValidationError when req breaks a field rule (storage untouched);
// *ConflictError when the email or username is taken, whether detected by
// the pre-check or by the unique constraint; *InternalError otherwise, after
// the transaction has been rolled back.
func (s *Registrar) Register(ctx context.Context, req RegistrationRequest) (*UserResponse, error) {
	resp, err := s.register(ctx, req)
	s.record(err)
	return resp, err
}

func (s *Registrar) register(ctx context.Context, req RegistrationRequest) (*UserResponse, error) {
	req = req.Normalize()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// Email is checked first so it wins when both collide.
	taken, err := s.store.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, &InternalError{Op: "check email", Err: err}
	}
	if taken {
		return nil, conflictFrom(ErrDuplicateEmail)
	}
	if req.Username != "" {
		taken, err := s.store.ExistsByUsername(ctx, req.Username)
		if err != nil {
			return nil, &InternalError{Op: "check username", Err: err}
		}
		if taken {
			return nil, conflictFrom(ErrDuplicateUsername)
		}
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, &InternalError{Op: "hash password", Err: err}
	}

	u := &User{
		PublicID:     uuid.New(),
		Email:        req.Email,
		Username:     optional(req.Username),
		PasswordHash: hash,
		IsActive:     true,
	}
	p := &Profile{
		PublicID:    uuid.New(),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: optional(req.PhoneNumber),
	}

	err = s.store.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		if err := uow.InsertUser(ctx, u); err != nil {
			return err
		}
		p.UserID = u.ID
		return uow.InsertProfile(ctx, p)
	})
	if err != nil {
		if conflict := conflictFrom(err); conflict != nil {
			return nil, conflict
		}
		return nil, &InternalError{Op: "persist user", Err: err}
	}
	u.Profile = p

	resp := NewUserResponse(u)
	s.logger.Info("user registered", zap.String("user_id", resp.ID.String()))

	if ctx.Err() != nil {
		s.logger.Debug("request cancelled after commit; skipping cache write",
			zap.String("user_id", resp.ID.String()),
		)
		return resp, nil
	}
	s.cacheResponse(ctx, resp)
	return resp, nil
}

// Get returns the user with the given public identifier, from the cache
// when possible and from storage otherwise. A storage hit re-populates the cache.
func (s *Registrar) Get(ctx context.Context, publicID uuid.UUID) (*UserResponse, error) {
	if s.cache != nil {
		if resp, ok := s.cachedResponse(ctx, publicID); ok {
			return resp, nil
		}
	}

	u, err := s.store.GetByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &InternalError{Op: "load user", Err: err}
	}

	resp := NewUserResponse(u)
	s.cacheResponse(ctx, resp)
	return resp, nil
}

// Delete removes the user (its profile cascades) and invalidates the cache entry.
func (s *Registrar) Delete(ctx context.Context, publicID uuid.UUID) error {
	if err := s.store.DeleteByPublicID(ctx, publicID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return &InternalError{Op: "delete user", Err: err}
	}
	s.logger.Info("user deleted", zap.String("user_id", publicID.String()))

	if s.cache != nil {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
		defer cancel()
		if err := s.cache.Delete(cctx, cacheNamespace, publicID.String()); err != nil {
			s.logger.Warn("cache invalidation failed",
				zap.String("user_id", publicID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// cacheResponse writes resp to the cache. Failures are logged and swallowed.
func (s *Registrar) cacheResponse(ctx context.Context, resp *UserResponse) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("marshal user for cache", zap.Error(err))
		return
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()
	if err := s.cache.SetEX(cctx, s.cacheTTL, b, cacheNamespace, resp.ID.String()); err != nil {
		s.logger.Warn("cache write failed",
			zap.String("user_id", resp.ID.String()),
			zap.Error(err),
		)
	}
}

// cachedResponse reads a cached response. Misses, backend errors and
// undecodable entries all report ok == false.
func (s *Registrar) cachedResponse(ctx context.Context, publicID uuid.UUID) (*UserResponse, bool) {
	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	b, err := s.cache.Get(cctx, cacheNamespace, publicID.String())
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("cache read failed", zap.String("user_id", publicID.String()), zap.Error(err))
		}
		return nil, false
	}

	var resp UserResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		s.logger.Warn("discarding undecodable cache entry",
			zap.String("user_id", publicID.String()),
			zap.Error(err),
		)
		return nil, false
	}
	return &resp, true
}

// record reports the outcome of one Register call.
func (s *Registrar) record(err error) {
	if s.onMetrics == nil {
		return
	}
	var (
		verr *ValidationError
		cerr *ConflictError
	)
	switch {
	case err == nil:
		s.onMetrics(OutcomeCreated)
	case errors.As(err, &verr):
		s.onMetrics(OutcomeInvalid)
	case errors.As(err, &cerr):
		s.onMetrics(OutcomeConflict)
	default:
		s.onMetrics(OutcomeError)
	}
}
