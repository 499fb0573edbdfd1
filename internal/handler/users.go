package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmerrifield20/accounts/internal/users"
	"go.uber.org/zap"
)

// adminSecretHeader carries the shared secret for administrative routes.
const adminSecretHeader = "X-Admin-Secret"

const msgCreateFailed = "an error occurred while creating user"

// conflictMessages maps a ConflictError field to its client-facing message.
var conflictMessages = map[string]string{
	"email":    "Email already registered",
	"username": "Username already taken",
}

// accountService is the subset of users.Registrar used by UserHandler.
type accountService interface {
	Register(ctx context.Context, req users.RegistrationRequest) (*users.UserResponse, error)
	Get(ctx context.Context, publicID uuid.UUID) (*users.UserResponse, error)
	Delete(ctx context.Context, publicID uuid.UUID) error
}

// UserHandler handles HTTP requests for account registration and lookup.
type UserHandler struct {
	svc         accountService
	adminSecret string // "" = DELETE route not mounted
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc accountService, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// SetAdminSecret enables DELETE /users/:id guarded by the X-Admin-Secret header.
func (h *UserHandler) SetAdminSecret(secret string) {
	h.adminSecret = secret
}

// Register registers user routes on the given router group.
func (h *UserHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.RegisterUser)
	rg.GET("/users/:id", h.GetUser)
	if h.adminSecret != "" {
		rg.DELETE("/users/:id", h.requireAdmin(), h.DeleteUser)
	}
}

// RegisterUser handles POST /auth/register.
func (h *UserHandler) RegisterUser(c *gin.Context) {
	var req users.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		var (
			verr *users.ValidationError
			cerr *users.ConflictError
		)
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verr.Fields})
		case errors.As(err, &cerr):
			c.JSON(http.StatusConflict, gin.H{
				"error": conflictMessages[cerr.Field],
				"field": cerr.Field,
			})
		default:
			h.logger.Error("register user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgCreateFailed})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetUser handles GET /users/:id.
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("get user", zap.String("user_id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteUser handles DELETE /users/:id.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("delete user", zap.String("user_id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// requireAdmin aborts with 401 unless the request carries the admin secret.
func (h *UserHandler) requireAdmin() gin.HandlerFunc {
	want := []byte(h.adminSecret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(adminSecretHeader))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin secret"})
			return
		}
		c.Next()
	}
}

// parseID reads the :id path parameter, writing a 400 when it is not a UUID.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return uuid.Nil, false
	}
	return id, true
}
