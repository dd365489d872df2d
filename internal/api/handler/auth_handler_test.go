package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterHelperInput) (string, *domain.User, error)
	loginFn    func(ctx context.Context, username, password string) (string, *domain.User, error)
}

func (s *stubAuthService) RegisterHelper(ctx context.Context, in ports.RegisterHelperInput) (string, *domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, username, password)
}

const helperRegistration = `{"username":"hank","password":"secret1",
	"specializations":["mathematics","physics","chemistry"],
	"payment_destination":{"kind":"paypal","paypal_email":"hank@example.com"}}`

func TestAuthHandler_RegisterHelper_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterHelperInput) (string, *domain.User, error) {
			if in.Username != "hank" || len(in.Specializations) != 3 {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Destination.Kind != domain.DestinationPayPal || in.Destination.PayPalEmail != "hank@example.com" {
				t.Fatalf("destination not bound: %+v", in.Destination)
			}
			return "token123", &domain.User{ID: "u-1", Username: in.Username, Roles: []string{domain.RoleHelper}, Active: true}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newContext(http.MethodPost, "/auth/register-helper", helperRegistration, nil)

	if err := handler.RegisterHelper(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusCreated)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["username"] != "hank" {
		t.Fatalf("unexpected user payload: %+v", resp["user"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("password hash must not be serialised")
	}
}

func TestAuthHandler_RegisterHelper_TooFewSpecializations(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterHelperInput) (string, *domain.User, error) {
			t.Fatalf("should not be called")
			return "", nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newContext(http.MethodPost, "/auth/register-helper",
		`{"username":"hank","password":"secret1","specializations":["mathematics"]}`, nil)

	if httpStatus(t, handler.RegisterHelper(c)) != http.StatusBadRequest {
		t.Fatalf("expected 400")
	}
}

func TestAuthHandler_RegisterHelper_Closed(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterHelperInput) (string, *domain.User, error) {
			return "", nil, domain.ErrRegistrationClosed
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newContext(http.MethodPost, "/auth/register-helper", helperRegistration, nil)

	if err := handler.RegisterHelper(c); !errors.Is(err, domain.ErrRegistrationClosed) {
		t.Fatalf("expected registration closed, got %v", err)
	}
}

func TestAuthHandler_RegisterHelper_InvalidPayload(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{})

	c, _ := newContext(http.MethodPost, "/auth/register-helper", "not-json", nil)

	if httpStatus(t, handler.RegisterHelper(c)) != http.StatusBadRequest {
		t.Fatalf("expected 400")
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (string, *domain.User, error) {
			if username != "ada" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return "token123", &domain.User{Username: "ada", Roles: []string{domain.RoleAdmin}}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := newContext(http.MethodPost, "/auth/login", `{"username":"ada","password":"secret"}`, nil)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (string, *domain.User, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := newContext(http.MethodPost, "/auth/login", `{"username":"ada","password":"bad"}`, nil)

	if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{})

	c, _ := newContext(http.MethodPost, "/auth/login", `{"username":"ada"}`, nil)

	if httpStatus(t, handler.Login(c)) != http.StatusBadRequest {
		t.Fatalf("expected 400")
	}
}
