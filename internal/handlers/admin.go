package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pollwave/pollwave/internal/auth"
)

// adminRegisterRequest is the body for creating an admin account
type adminRegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

// handleAdminRegister creates an admin account
func (h *Handlers) handleAdminRegister(w http.ResponseWriter, r *http.Request) {
	var req adminRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	admin, err := h.Auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, admin)
}

// adminLoginRequest is the body for logging in
type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleAdminLogin validates credentials and sets the session cookie
func (h *Handlers) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	token, admin, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	auth.SetSessionCookie(w, token)
	respondOK(w, admin)
}

// handleAdminLogout invalidates the session and clears the cookie
func (h *Handlers) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.Auth.Logout(cookie.Value)
	}
	auth.ClearSessionCookie(w)
	respondSuccess(w, "Logged out")
}

// handleListFingerprints returns all known device fingerprints
func (h *Handlers) handleListFingerprints(w http.ResponseWriter, r *http.Request) {
	fps, err := h.Fingerprint.ListFingerprints(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, fps)
}

// handleListBlocked returns the currently blocked fingerprints
func (h *Handlers) handleListBlocked(w http.ResponseWriter, r *http.Request) {
	fps, err := h.Fingerprint.ListBlocked(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, fps)
}

// handleFingerprintStats summarizes a device's voting activity
func (h *Handlers) handleFingerprintStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Fingerprint.DeviceStatistics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, stats)
}

// blockRequest is the body for blocking a fingerprint
type blockRequest struct {
	Reason string `json:"reason"`
}

// handleBlockFingerprint blocks a device from voting
func (h *Handlers) handleBlockFingerprint(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
	}

	id := chi.URLParam(r, "id")
	if err := h.Fingerprint.Block(r.Context(), id, req.Reason, auth.AdminID(r.Context())); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Device blocked")
}

// handleUnblockFingerprint clears a device's block
func (h *Handlers) handleUnblockFingerprint(w http.ResponseWriter, r *http.Request) {
	if err := h.Fingerprint.Unblock(r.Context(), chi.URLParam(r, "id"), auth.AdminID(r.Context())); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Device unblocked")
}

// handleListAdminLogs returns the most recent admin audit records
func (h *Handlers) handleListAdminLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Auth.ActionLog(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, logs)
}

// handleDeleteFingerprint removes a fingerprint record
func (h *Handlers) handleDeleteFingerprint(w http.ResponseWriter, r *http.Request) {
	if err := h.Fingerprint.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}
