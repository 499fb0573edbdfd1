package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when the requested user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrUnauthorized is returned when an admin call is rejected.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError is returned by Register when the server rejects one or
// more fields. Fields maps the JSON field name to a human-readable message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError is returned by Register when Field (email or username) is taken.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// APIError is returned for any other non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// RegisterRequest is the payload for Register.
type RegisterRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username,omitempty"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	PhoneNumber     string `json:"phone_number,omitempty"`
}

// User is the account representation returned by the API.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Username        *string    `json:"username,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
	Profile         *Profile   `json:"profile"`
}

// Profile is the personal data attached to a User.
type Profile struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	PhoneNumber *string    `json:"phone_number,omitempty"`
	Bio         *string    `json:"bio,omitempty"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// Client talks to an accounts server.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	adminSecret string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client, overriding any TLS options.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithAdminSecret sets the secret sent as X-Admin-Secret on admin calls.
func WithAdminSecret(secret string) Option {
	return func(c *Client) error {
		c.adminSecret = secret
		return nil
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// Only use this in development against a self-signed certificate.
func WithInsecureSkipVerify() Option {
	return func(c *Client) error {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
			Timeout: 10 * time.Second,
		}
		return nil
	}
}

// New creates a new Client for the server at baseURL.
//
//	c, err := client.New("http://localhost:8000")
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("client: base URL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register creates a new account. It returns *ValidationError or
// *ConflictError when the server rejects the request.
func (c *Client) Register(ctx context.Context, reg RegisterRequest) (*User, error) {
	payload, err := json.Marshal(reg)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/register", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusCreated:
		var u User
		if err := json.Unmarshal(body, &u); err != nil {
			return nil, fmt.Errorf("decode user response: %w", err)
		}
		return &u, nil
	case http.StatusUnprocessableEntity:
		var payload struct {
			Errors map[string]string `json:"errors"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decode validation response: %w", err)
		}
		return nil, &ValidationError{Fields: payload.Errors}
	case http.StatusConflict:
		var payload struct {
			Error string `json:"error"`
			Field string `json:"field"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decode conflict response: %w", err)
		}
		return nil, &ConflictError{Field: payload.Field, Message: payload.Error}
	}
	return nil, apiError(status, body)
}

// GetUser fetches a user by its public ID.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/users/"+id, nil)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		var u User
		if err := json.Unmarshal(body, &u); err != nil {
			return nil, fmt.Errorf("decode user response: %w", err)
		}
		return &u, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	}
	return nil, apiError(status, body)
}

// DeleteUser removes a user and its profile. The client must have been
// configured with WithAdminSecret.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/users/"+id, nil)
	if err != nil {
		return err
	}
	if c.adminSecret != "" {
		req.Header.Set("X-Admin-Secret", c.adminSecret)
	}

	status, body, err := c.do(req)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return apiError(status, body)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes req and returns the status code and body without
// interpreting the status. The caller maps it to a result.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// apiError builds an *APIError, preferring the server's {"error": ...} message.
func apiError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{StatusCode: status, Message: msg}
}
