package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pollwave/pollwave/internal/auth"
	"github.com/pollwave/pollwave/internal/services"
	"github.com/pollwave/pollwave/internal/testutil"
)

func setupAuth(t *testing.T) *auth.Auth {
	t.Helper()
	return auth.New(testutil.NewTestRepository(t))
}

func TestLogin_DisabledAccount(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	a := auth.New(repo)

	admin, err := a.Register(context.Background(), "root@example.com", "Root", "secret")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := repo.SetAdminActive(context.Background(), admin.ID, false); err != nil {
		t.Fatalf("SetAdminActive failed: %v", err)
	}

	if _, _, err := a.Login(context.Background(), "root@example.com", "secret"); err != services.ErrAccountDisabled {
		t.Errorf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestHashPassword_Deterministic(t *testing.T) {
	a := auth.HashPassword("hunter2")
	b := auth.HashPassword("hunter2")
	if a != b {
		t.Error("hashing the same password twice should match")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a == auth.HashPassword("hunter3") {
		t.Error("different passwords should not collide")
	}
}

func TestRegister(t *testing.T) {
	a := setupAuth(t)

	admin, err := a.Register(context.Background(), "root@example.com", "Root", "secret")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if admin.ID == "" || !admin.Active {
		t.Errorf("unexpected admin: %+v", admin)
	}

	if _, err := a.Register(context.Background(), "root@example.com", "Clone", "secret"); err != services.ErrEmailTaken {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := a.Register(context.Background(), "", "NoEmail", "secret"); err == nil {
		t.Error("expected error for empty email")
	}
	if _, err := a.Register(context.Background(), "x@example.com", "NoPass", ""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestLogin(t *testing.T) {
	a := setupAuth(t)
	if _, err := a.Register(context.Background(), "root@example.com", "Root", "secret"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	token, admin, err := a.Login(context.Background(), "root@example.com", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token == "" {
		t.Error("expected a session token")
	}
	if admin.LastLoginAt == nil {
		t.Error("login should stamp last_login_at")
	}

	adminID, ok := a.ValidateSession(token)
	if !ok || adminID != admin.ID {
		t.Errorf("session should resolve to the admin, got %q/%v", adminID, ok)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	a := setupAuth(t)
	if _, err := a.Register(context.Background(), "root@example.com", "Root", "secret"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, _, err := a.Login(context.Background(), "root@example.com", "wrong"); err != services.ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	// Unknown email and wrong password are indistinguishable to the caller
	if _, _, err := a.Login(context.Background(), "ghost@example.com", "secret"); err != services.ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	a := setupAuth(t)
	if _, err := a.Register(context.Background(), "root@example.com", "Root", "secret"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	token, _, err := a.Login(context.Background(), "root@example.com", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	a.Logout(token)
	if _, ok := a.ValidateSession(token); ok {
		t.Error("session should be invalid after logout")
	}
}

func TestValidateSession_UnknownToken(t *testing.T) {
	a := setupAuth(t)
	if _, ok := a.ValidateSession("made-up"); ok {
		t.Error("unknown token should not validate")
	}
}

func TestRequireAuth(t *testing.T) {
	a := setupAuth(t)
	if _, err := a.Register(context.Background(), "root@example.com", "Root", "secret"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	token, admin, err := a.Login(context.Background(), "root@example.com", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	var seenAdminID string
	handler := a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAdminID = auth.AdminID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No cookie
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/admin/polls", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a session, got %d", rec.Code)
	}

	// Valid cookie
	req := httptest.NewRequest("GET", "/api/admin/polls", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with a session, got %d", rec.Code)
	}
	if seenAdminID != admin.ID {
		t.Errorf("expected admin ID on the context, got %q", seenAdminID)
	}

	// Garbage cookie
	req = httptest.NewRequest("GET", "/api/admin/polls", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "bogus"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with a bogus token, got %d", rec.Code)
	}
}

func TestSessionCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	auth.SetSessionCookie(rec, "tok-1")
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.CookieName || cookies[0].Value != "tok-1" {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	rec = httptest.NewRecorder()
	auth.ClearSessionCookie(rec)
	cookies = rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Errorf("clearing should expire the cookie: %+v", cookies)
	}
}
