package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/pollwave/pollwave/internal/models"
	"github.com/pollwave/pollwave/internal/repository"
	"github.com/pollwave/pollwave/internal/services"
)

const (
	CookieName    = "pollwave_session"
	SessionExpiry = 24 * time.Hour
)

type contextKey string

const adminIDKey contextKey = "admin_id"

// session pairs a logged-in admin with the token's expiry
type session struct {
	adminID string
	expiry  time.Time
}

// Auth handles admin accounts and session tokens. Sessions live in memory;
// a restart logs everyone out.
type Auth struct {
	repo     repository.AdminRepository
	sessions map[string]session
	mu       sync.RWMutex
}

// New creates a new Auth instance backed by the admin repository
func New(repo repository.AdminRepository) *Auth {
	return &Auth{
		repo:     repo,
		sessions: make(map[string]session),
	}
}

// HashPassword returns the hex digest used for stored credentials
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Register creates a new admin account. A taken email is rejected.
func (a *Auth) Register(ctx context.Context, email, name, password string) (*models.Admin, error) {
	if email == "" || password == "" {
		return nil, &services.ServiceError{Message: "email and password are required"}
	}
	admin := &models.Admin{
		Email:     email,
		Name:      name,
		Active:    true,
		CreatedAt: time.Now(),
	}
	err := a.repo.CreateAdmin(ctx, admin, HashPassword(password))
	if stderrors.Is(err, repository.ErrDuplicateEmail) {
		return nil, services.ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return admin, nil
}

// Login validates credentials and mints a session token
func (a *Auth) Login(ctx context.Context, email, password string) (string, *models.Admin, error) {
	admin, passwordHash, err := a.repo.GetAdminCredentials(ctx, email)
	if stderrors.Is(err, repository.ErrNotFound) {
		return "", nil, services.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if subtle.ConstantTimeCompare([]byte(passwordHash), []byte(HashPassword(password))) != 1 {
		return "", nil, services.ErrInvalidCredentials
	}
	if !admin.Active {
		return "", nil, services.ErrAccountDisabled
	}

	token := generateToken()
	a.mu.Lock()
	a.sessions[token] = session{adminID: admin.ID, expiry: time.Now().Add(SessionExpiry)}
	a.mu.Unlock()

	now := time.Now()
	if err := a.repo.TouchAdminLogin(ctx, admin.ID, now); err == nil {
		admin.LastLoginAt = &now
	}
	return token, admin, nil
}

// Logout invalidates a session token
func (a *Auth) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// ValidateSession resolves a token to the admin it belongs to
func (a *Auth) ValidateSession(token string) (string, bool) {
	a.mu.RLock()
	sess, exists := a.sessions[token]
	a.mu.RUnlock()

	if !exists {
		return "", false
	}
	if time.Now().After(sess.expiry) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return "", false
	}
	return sess.adminID, true
}

// ActionLog returns the most recent admin audit records, newest first
func (a *Auth) ActionLog(ctx context.Context, limit int) ([]models.AdminLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return a.repo.ListAdminLogs(ctx, limit)
}

// AdminFromRequest extracts and validates the session from a request,
// returning the admin ID when valid.
func (a *Auth) AdminFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	return a.ValidateSession(cookie.Value)
}

// RequireAuth middleware for admin API endpoints (returns 401). The acting
// admin's ID is placed on the request context.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		adminID, ok := a.AdminFromRequest(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":"UNAUTHORIZED","error":"Unauthorized - please log in"}`))
			return
		}
		ctx := context.WithValue(r.Context(), adminIDKey, adminID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminID returns the acting admin's ID from a request context
func AdminID(ctx context.Context) string {
	id, _ := ctx.Value(adminIDKey).(string)
	return id
}

// SetSessionCookie sets the session cookie on the response
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionExpiry.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// generateToken creates a random session token
func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
