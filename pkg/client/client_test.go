package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jmerrifield20/accounts/pkg/client"
)

const knownID = "550e8400-e29b-41d4-a716-446655440000"

// ── Stub server ─────────────────────────────────────────────────────────

func stubAccountsServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"error": "invalid request body"})
			return
		}
		switch req["email"] {
		case "taken@x.io":
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]any{"error": "Email already registered", "field": "email"})
		case "":
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{"errors": map[string]string{
				"email":    "This field is required",
				"password": "Password must contain at least one digit",
			}})
		case "boom@x.io":
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{"error": "an error occurred while creating user"})
		default:
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"id":                knownID,
				"email":             req["email"],
				"is_active":         true,
				"email_verified_at": nil,
				"created_at":        "2026-01-02T03:04:05Z",
				"updated_at":        nil,
				"profile": map[string]any{
					"id":         "0f8fad5b-d9cb-469f-a165-70867728950e",
					"first_name": req["first_name"],
					"last_name":  req["last_name"],
					"created_at": "2026-01-02T03:04:05Z",
				},
			})
		}
	})

	mux.HandleFunc("GET /api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != knownID {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"error": "user not found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":         knownID,
			"email":      "a@x.io",
			"username":   "alice_1",
			"is_active":  true,
			"created_at": "2026-01-02T03:04:05Z",
			"profile":    nil,
		})
	})

	mux.HandleFunc("DELETE /api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Secret") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"error": "invalid admin secret"})
			return
		}
		if r.PathValue("id") != knownID {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func validRegistration(email string) client.RegisterRequest {
	return client.RegisterRequest{
		Email:           email,
		Password:        "Str0ng!Pass",
		PasswordConfirm: "Str0ng!Pass",
		FirstName:       "Ada",
		LastName:        "Lovelace",
	}
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestNew_requiresBaseURL(t *testing.T) {
	if _, err := client.New(""); err == nil {
		t.Error("expected error for empty base URL")
	}
}

func TestRegister_success(t *testing.T) {
	srv := stubAccountsServer(t)
	c, err := client.New(srv.URL + "/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	u, err := c.Register(context.Background(), validRegistration("a@x.io"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID != knownID || u.Email != "a@x.io" || !u.IsActive {
		t.Errorf("user = %+v", u)
	}
	if u.EmailVerifiedAt != nil || u.UpdatedAt != nil {
		t.Error("expected null timestamps")
	}
	if u.Profile == nil || u.Profile.FirstName != "Ada" {
		t.Errorf("profile = %+v", u.Profile)
	}
	if u.CreatedAt.Year() != 2026 {
		t.Errorf("created_at = %v", u.CreatedAt)
	}
}

func TestRegister_validationError(t *testing.T) {
	c, _ := client.New(stubAccountsServer(t).URL)

	_, err := c.Register(context.Background(), validRegistration(""))
	var verr *client.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Fields["password"] != "Password must contain at least one digit" {
		t.Errorf("fields = %v", verr.Fields)
	}
	if !strings.HasPrefix(err.Error(), "validation failed: email:") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRegister_conflict(t *testing.T) {
	c, _ := client.New(stubAccountsServer(t).URL)

	_, err := c.Register(context.Background(), validRegistration("taken@x.io"))
	var cerr *client.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConflictError, got %v", err)
	}
	if cerr.Field != "email" || cerr.Message != "Email already registered" {
		t.Errorf("conflict = %+v", cerr)
	}
}

func TestRegister_serverError(t *testing.T) {
	c, _ := client.New(stubAccountsServer(t).URL)

	_, err := c.Register(context.Background(), validRegistration("boom@x.io"))
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Message != "an error occurred while creating user" {
		t.Errorf("api error = %+v", apiErr)
	}
}

func TestGetUser(t *testing.T) {
	c, _ := client.New(stubAccountsServer(t).URL)

	u, err := c.GetUser(context.Background(), knownID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Username == nil || *u.Username != "alice_1" {
		t.Errorf("username = %v", u.Username)
	}
	if u.Profile != nil {
		t.Error("expected nil profile")
	}

	if _, err := c.GetUser(context.Background(), "11111111-1111-1111-1111-111111111111"); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	srv := stubAccountsServer(t)

	anon, _ := client.New(srv.URL)
	if err := anon.DeleteUser(context.Background(), knownID); !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	admin, _ := client.New(srv.URL, client.WithAdminSecret("s3cret"))
	if err := admin.DeleteUser(context.Background(), knownID); err != nil {
		t.Errorf("DeleteUser: %v", err)
	}
	if err := admin.DeleteUser(context.Background(), "11111111-1111-1111-1111-111111111111"); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegister_contextCancelled(t *testing.T) {
	c, _ := client.New(stubAccountsServer(t).URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Register(ctx, validRegistration("a@x.io")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWithHTTPClient(t *testing.T) {
	srv := stubAccountsServer(t)
	c, err := client.New(srv.URL, client.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.GetUser(context.Background(), knownID); err != nil {
		t.Errorf("GetUser: %v", err)
	}
}
