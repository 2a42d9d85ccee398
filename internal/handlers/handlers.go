package handlers

import (
	"net/http"

	"github.com/pollwave/pollwave/internal/auth"
	"github.com/pollwave/pollwave/internal/services"
	"github.com/pollwave/pollwave/internal/websocket"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Fingerprint services.FingerprintServicer
	Poll        services.PollServicer
	Voting      services.VotingServicer
	Iot         services.IotServicer
	Stats       services.StatsServicer
	Auth        *auth.Auth
	Hub         *websocket.Hub
	Log         HTTPLogger
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// New creates a new Handlers instance with all dependencies
func New(
	fingerprint services.FingerprintServicer,
	poll services.PollServicer,
	voting services.VotingServicer,
	iot services.IotServicer,
	stats services.StatsServicer,
	authn *auth.Auth,
	hub *websocket.Hub,
	log HTTPLogger,
) *Handlers {
	return &Handlers{
		Fingerprint: fingerprint,
		Poll:        poll,
		Voting:      voting,
		Iot:         iot,
		Stats:       stats,
		Auth:        authn,
		Hub:         hub,
		Log:         log,
	}
}

// handleHealth reports service liveness
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]string{"status": "ok"})
}
