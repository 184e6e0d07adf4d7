package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"keep-notes/auth"
	"keep-notes/db"
	"keep-notes/logger"
	"keep-notes/models"

	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("handlers-test-secret")

type testEnv struct {
	handler *Handler
	store   *db.MemoryStore
	hasher  *auth.PasswordHasher
	codec   *auth.TokenCodec
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store := db.NewMemoryStore()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	codec := auth.NewTokenCodec(testSecret, auth.DefaultTokenTTL)
	return &testEnv{
		handler: New(logger.Discard(), store, hasher, codec, opts),
		store:   store,
		hasher:  hasher,
		codec:   codec,
	}
}

func (e *testEnv) createUser(t *testing.T, email, password string, role models.Role) string {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	id, err := e.store.CreateUser(context.Background(), models.User{Email: email, PasswordHash: hash, Role: role})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return id
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.createUser(t, "test@example.com", "testpassword", models.RoleUser)

	// Test case 1: Successful registration
	t.Run("Successful registration", func(t *testing.T) {
		rr := postJSON(t, env.handler.Register, "/api/v1/register", map[string]string{
			"email":    "newuser@example.com",
			"password": "password123",
		})

		if status := rr.Code; status != http.StatusOK {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}

		// Verify user was stored with the default role
		user, err := env.store.GetUserByEmail(context.Background(), "newuser@example.com")
		if err != nil {
			t.Fatalf("Expected user record, got %v", err)
		}
		if user.Role != models.RoleUser {
			t.Errorf("Role: got %v want %v", user.Role, models.RoleUser)
		}
		if user.PasswordHash == "password123" || !env.hasher.Verify("password123", user.PasswordHash) {
			t.Errorf("Password was not stored as a verifiable hash")
		}
	})

	// Test case 2: User already exists
	t.Run("User already exists", func(t *testing.T) {
		rr := postJSON(t, env.handler.Register, "/api/v1/register", map[string]string{
			"email":    "test@example.com",
			"password": "password123",
		})

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
		}
	})

	// Test case 3: Email lookup ignores case
	t.Run("Same email in other case", func(t *testing.T) {
		rr := postJSON(t, env.handler.Register, "/api/v1/register", map[string]string{
			"email":    "TEST@Example.com",
			"password": "password123",
		})

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
		}
	})

	// Test case 4: Missing password
	t.Run("Invalid request body", func(t *testing.T) {
		rr := postJSON(t, env.handler.Register, "/api/v1/register", map[string]string{
			"email": "invalid@example.com",
		})

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
		}
	})

	// 40 runes but 80 bytes, over bcrypt's limit
	t.Run("Multibyte password over 72 bytes", func(t *testing.T) {
		rr := postJSON(t, env.handler.Register, "/api/v1/register", map[string]string{
			"email":    "mb@example.com",
			"password": strings.Repeat("é", 40),
		})

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
		}
		if _, err := env.store.GetUserByEmail(context.Background(), "mb@example.com"); err == nil {
			t.Errorf("Rejected registration must not create a user")
		}
	})

	t.Run("Malformed email", func(t *testing.T) {
		rr := postJSON(t, env.handler.Register, "/api/v1/register", map[string]string{
			"email":    "not-an-email",
			"password": "password123",
		})

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
		}
	})

	t.Run("Unknown role", func(t *testing.T) {
		rr := postJSON(t, env.handler.Register, "/api/v1/register", map[string]string{
			"email":    "root@example.com",
			"password": "password123",
			"role":     "superuser",
		})

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
		}
	})

	t.Run("Admin role refused by default", func(t *testing.T) {
		rr := postJSON(t, env.handler.Register, "/api/v1/register", map[string]string{
			"email":    "wannabe@example.com",
			"password": "password123",
			"role":     "admin",
		})

		if status := rr.Code; status != http.StatusForbidden {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusForbidden)
		}
		if _, err := env.store.GetUserByEmail(context.Background(), "wannabe@example.com"); err == nil {
			t.Errorf("Refused registration must not create a user")
		}
	})

	t.Run("Explicit user role accepted", func(t *testing.T) {
		rr := postJSON(t, env.handler.Register, "/api/v1/register", map[string]string{
			"email":    "plain@example.com",
			"password": "password123",
			"role":     "user",
		})

		if status := rr.Code; status != http.StatusOK {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}
	})
}

func TestRegisterSelfAssignedRole(t *testing.T) {
	env := newTestEnv(t, Options{AllowSelfAssignedRole: true})

	rr := postJSON(t, env.handler.Register, "/api/v1/register", map[string]string{
		"email":    "boss@example.com",
		"password": "password123",
		"role":     "admin",
	})

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("Handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
	user, err := env.store.GetUserByEmail(context.Background(), "boss@example.com")
	if err != nil {
		t.Fatalf("Expected user record, got %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("Role: got %v want %v", user.Role, models.RoleAdmin)
	}
}

type countingHasher struct {
	*auth.PasswordHasher
	verifies int
}

func (c *countingHasher) Verify(password, hash string) bool {
	c.verifies++
	return c.PasswordHasher.Verify(password, hash)
}

func TestLoginUnknownEmailStillHashes(t *testing.T) {
	env := newTestEnv(t, Options{})
	hasher := &countingHasher{PasswordHasher: env.hasher}
	h := New(logger.Discard(), env.store, hasher, env.codec, Options{})

	rr := postJSON(t, h.Login, "/api/v1/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "testpassword",
	})

	if status := rr.Code; status != http.StatusUnauthorized {
		t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
	}
	if hasher.verifies != 1 {
		t.Errorf("Expected one password comparison for an unknown email, got %d", hasher.verifies)
	}
	if h.dummyHash == "" {
		t.Errorf("Dummy hash was not prepared")
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, Options{})
	userID := env.createUser(t, "test@example.com", "testpassword", models.RoleUser)

	// Test case 1: Successful login
	t.Run("Successful login", func(t *testing.T) {
		rr := postJSON(t, env.handler.Login, "/api/v1/login", map[string]string{
			"email":    "test@example.com",
			"password": "testpassword",
		})

		if status := rr.Code; status != http.StatusOK {
			t.Fatalf("Handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}

		// Verify response contains a token for the user
		var response map[string]string
		json.Unmarshal(rr.Body.Bytes(), &response)
		token, exists := response["access_token"]
		if !exists || token == "" {
			t.Fatalf("Response missing access_token")
		}
		subject, err := env.codec.Validate(token)
		if err != nil || subject != userID {
			t.Errorf("Token subject: got %v (%v) want %v", subject, err, userID)
		}
	})

	t.Run("Email is case-insensitive", func(t *testing.T) {
		rr := postJSON(t, env.handler.Login, "/api/v1/login", map[string]string{
			"email":    "Test@Example.COM",
			"password": "testpassword",
		})

		if status := rr.Code; status != http.StatusOK {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}
	})

	// Test case 2: Invalid credentials
	t.Run("Invalid credentials", func(t *testing.T) {
		rr := postJSON(t, env.handler.Login, "/api/v1/login", map[string]string{
			"email":    "test@example.com",
			"password": "wrongpassword",
		})

		if status := rr.Code; status != http.StatusUnauthorized {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
		}
	})

	// Test case 3: User not found
	t.Run("User not found", func(t *testing.T) {
		rr := postJSON(t, env.handler.Login, "/api/v1/login", map[string]string{
			"email":    "nonexistent@example.com",
			"password": "testpassword",
		})

		if status := rr.Code; status != http.StatusUnauthorized {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
		}
	})

	t.Run("Garbage body", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/v1/login", bytes.NewBufferString("{not json"))
		rr := httptest.NewRecorder()
		env.handler.Login(rr, req)

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
		}
	})
}

type unreachableStore struct {
	*db.MemoryStore
}

func (unreachableStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	env := newTestEnv(t, Options{})

	t.Run("Store reachable", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/health", nil)
		rr := httptest.NewRecorder()
		env.handler.Health(rr, req)

		if status := rr.Code; status != http.StatusOK {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}
	})

	t.Run("Store unreachable", func(t *testing.T) {
		h := New(logger.Discard(), unreachableStore{env.store}, env.hasher, env.codec, Options{})
		req, _ := http.NewRequest("GET", "/health", nil)
		rr := httptest.NewRecorder()
		h.Health(rr, req)

		if status := rr.Code; status != http.StatusServiceUnavailable {
			t.Errorf("Handler returned wrong status code: got %v want %v", status, http.StatusServiceUnavailable)
		}
	})
}
