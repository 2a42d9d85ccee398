package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pollwave/pollwave/internal/auth"
	"github.com/pollwave/pollwave/internal/services"
)

// registerDeviceRequest is the body for registering a kiosk
type registerDeviceRequest struct {
	KioskID    string `json:"kiosk_id"`
	Location   string `json:"location,omitempty"`
	DeviceType string `json:"device_type,omitempty"`
}

// handleRegisterDevice creates a kiosk device record
func (h *Handlers) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	device, err := h.Iot.RegisterDevice(r.Context(), req.KioskID, req.Location, req.DeviceType)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, device)
}

// handleSyncDevice handles a kiosk check-in and returns its config plus
// the active polls
func (h *Handlers) handleSyncDevice(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Iot.SyncDevice(r.Context(), chi.URLParam(r, "kioskId"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, resp)
}

// handleRegisterIotVote scores and stores a kiosk-submitted vote
func (h *Handlers) handleRegisterIotVote(w http.ResponseWriter, r *http.Request) {
	var input services.IotVoteInput
	if err := decodeJSON(r, &input); err != nil {
		respondError(w, err)
		return
	}
	if input.DeviceID == "" || input.PollID == "" {
		respondError(w, BadRequest("device_id and poll_id are required"))
		return
	}

	vote, err := h.Iot.RegisterIotVote(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, vote)
}

// handleListDevices returns all kiosk devices
func (h *Handlers) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.Iot.ListDevices(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, devices)
}

// handleDeviceStats summarizes a kiosk's submission history
func (h *Handlers) handleDeviceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Iot.DeviceStatistics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, stats)
}

// handleUpdateDeviceConfig applies a partial config update; kiosks pick it
// up on next sync via the bumped config version
func (h *Handlers) handleUpdateDeviceConfig(w http.ResponseWriter, r *http.Request) {
	var input services.ConfigUpdate
	if err := decodeJSON(r, &input); err != nil {
		respondError(w, err)
		return
	}

	cfg, err := h.Iot.UpdateDeviceConfig(r.Context(), chi.URLParam(r, "id"), input, auth.AdminID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, cfg)
}
