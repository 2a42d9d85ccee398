package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/health", h.handleHealth)

	// WebSocket
	r.Get("/ws", h.Hub.ServeWs)

	// Device identity (public)
	r.Post("/api/fingerprint", h.handleIdentify)

	// Polls (public)
	r.Get("/api/polls", h.handleListPolls)
	r.Post("/api/polls", h.handleCreatePoll)
	r.Get("/api/polls/trending", h.handleTrendingPolls) // Must come before /api/polls/{id}
	r.Get("/api/polls/{id}", h.handleGetPoll)
	r.Get("/api/polls/{id}/stats", h.handlePollStats)
	r.Get("/api/polls/{id}/distribution", h.handlePollDistribution)
	r.Get("/api/polls/{id}/link", h.handlePollLink)
	r.Get("/api/polls/{id}/qr", h.handlePollQR)

	// Voting (public)
	r.Post("/api/vote", h.handleRegisterVote)
	r.Get("/api/vote/status", h.handleVoteStatus)

	// IoT kiosks (public; kiosks authenticate by kiosk id)
	r.Post("/api/iot/devices", h.handleRegisterDevice)
	r.Post("/api/iot/devices/{kioskId}/sync", h.handleSyncDevice)
	r.Post("/api/iot/votes", h.handleRegisterIotVote)

	// Auth (public)
	r.Post("/api/admin/register", h.handleAdminRegister)
	r.Post("/api/admin/login", h.handleAdminLogin)
	r.Post("/api/admin/logout", h.handleAdminLogout)

	// Admin API (protected)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuth)

		// Poll lifecycle
		r.Put("/api/admin/polls/{id}", h.handleUpdatePoll)
		r.Post("/api/admin/polls/{id}/close", h.handleClosePoll)
		r.Post("/api/admin/polls/{id}/archive", h.handleArchivePoll)
		r.Delete("/api/admin/polls/{id}", h.handleDeletePoll)

		// Options
		r.Post("/api/admin/polls/{id}/options", h.handleAddOption)
		r.Post("/api/admin/polls/{id}/options/resequence", h.handleResequenceOptions)
		r.Delete("/api/admin/options/{id}", h.handleDeleteOption)

		// Votes
		r.Delete("/api/admin/votes/{id}", h.handleDeleteVote)

		// Audit log
		r.Get("/api/admin/logs", h.handleListAdminLogs)

		// Device fingerprints
		r.Get("/api/admin/fingerprints", h.handleListFingerprints)
		r.Get("/api/admin/fingerprints/blocked", h.handleListBlocked)
		r.Get("/api/admin/fingerprints/{id}/stats", h.handleFingerprintStats)
		r.Post("/api/admin/fingerprints/{id}/block", h.handleBlockFingerprint)
		r.Post("/api/admin/fingerprints/{id}/unblock", h.handleUnblockFingerprint)
		r.Delete("/api/admin/fingerprints/{id}", h.handleDeleteFingerprint)

		// IoT devices
		r.Get("/api/admin/devices", h.handleListDevices)
		r.Get("/api/admin/devices/{id}/stats", h.handleDeviceStats)
		r.Put("/api/admin/devices/{id}/config", h.handleUpdateDeviceConfig)
	})

	return r
}
