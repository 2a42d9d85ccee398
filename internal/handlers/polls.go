package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pollwave/pollwave/internal/auth"
	"github.com/pollwave/pollwave/internal/models"
	"github.com/pollwave/pollwave/internal/services"
)

// handleListPolls returns all polls, optionally filtered by ?status=
func (h *Handlers) handleListPolls(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	var (
		polls []models.Poll
		err   error
	)
	if status != "" {
		polls, err = h.Poll.ListPollsByStatus(r.Context(), models.PollStatus(status))
	} else {
		polls, err = h.Poll.ListPolls(r.Context())
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, polls)
}

// handleCreatePoll creates a poll with optional initial options
func (h *Handlers) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var input services.PollInput
	if err := decodeJSON(r, &input); err != nil {
		respondError(w, err)
		return
	}

	poll, err := h.Poll.CreatePoll(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, poll)
}

// handleGetPoll returns one poll with its options
func (h *Handlers) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.Poll.GetPoll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, poll)
}

// handlePollStats returns aggregated results for a poll
func (h *Handlers) handlePollStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.ComputeStatistics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, stats)
}

// handlePollDistribution returns rating-distribution metrics for a poll
func (h *Handlers) handlePollDistribution(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.Stats.DistributionMetrics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, metrics)
}

// handleTrendingPolls returns the busiest active polls
func (h *Handlers) handleTrendingPolls(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	trending, err := h.Stats.TrendingPolls(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, trending)
}

// handlePollLink returns the shareable voting URL for a poll
func (h *Handlers) handlePollLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Poll.GetPoll(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]string{"url": h.Poll.PollLink(id)})
}

// handlePollQR serves the poll's voting URL as a PNG QR code
func (h *Handlers) handlePollQR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Poll.GetPoll(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	png, err := h.Poll.PollQR(id, queryInt(r, "size", 256))
	if err != nil {
		respondError(w, InternalError(err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// handleUpdatePoll edits a poll's title, question and result visibility
func (h *Handlers) handleUpdatePoll(w http.ResponseWriter, r *http.Request) {
	var input services.PollUpdate
	if err := decodeJSON(r, &input); err != nil {
		respondError(w, err)
		return
	}

	poll, err := h.Poll.UpdatePoll(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, poll)
}

// handleClosePoll moves a poll to CLOSED
func (h *Handlers) handleClosePoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.Poll.ClosePoll(r.Context(), chi.URLParam(r, "id"), auth.AdminID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, poll)
}

// handleArchivePoll moves a poll to ARCHIVED
func (h *Handlers) handleArchivePoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.Poll.ArchivePoll(r.Context(), chi.URLParam(r, "id"), auth.AdminID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, poll)
}

// handleDeletePoll removes a poll and everything hanging off it
func (h *Handlers) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	if err := h.Poll.DeletePoll(r.Context(), chi.URLParam(r, "id"), auth.AdminID(r.Context())); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

// addOptionRequest is the body for adding an option to a poll
type addOptionRequest struct {
	Text     string `json:"text"`
	OrderNum *int   `json:"order_num,omitempty"`
}

// handleAddOption appends an option, or inserts at an explicit order when
// order_num is given.
func (h *Handlers) handleAddOption(w http.ResponseWriter, r *http.Request) {
	var req addOptionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	pollID := chi.URLParam(r, "id")
	var (
		opt *models.PollOption
		err error
	)
	if req.OrderNum != nil {
		opt, err = h.Poll.AddOptionWithOrder(r.Context(), pollID, req.Text, *req.OrderNum)
	} else {
		opt, err = h.Poll.AddOption(r.Context(), pollID, req.Text)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, opt)
}

// handleResequenceOptions reassigns a poll's option orders to 0..N-1
func (h *Handlers) handleResequenceOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.Poll.ResequenceOptions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, options)
}

// handleDeleteOption removes an option
func (h *Handlers) handleDeleteOption(w http.ResponseWriter, r *http.Request) {
	if err := h.Poll.DeleteOption(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}
