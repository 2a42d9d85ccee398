package handlers

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pollwave/pollwave/internal/auth"
	"github.com/pollwave/pollwave/internal/services"
)

// clientIP extracts the client address, trusting chi's RealIP middleware to
// have rewritten RemoteAddr from forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// identifyRequest optionally carries a previously issued fingerprint hash
type identifyRequest struct {
	KnownHash string `json:"known_hash,omitempty"`
}

// handleIdentify resolves the caller to a device fingerprint. First contact
// mints a new identity; returning clients send back their hash.
func (h *Handlers) handleIdentify(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	// An empty body means first contact
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
	}

	fp, err := h.Fingerprint.Identify(r.Context(), clientIP(r), r.UserAgent(), req.KnownHash)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, fp)
}

// handleRegisterVote records a vote and pushes updated results to subscribers
func (h *Handlers) handleRegisterVote(w http.ResponseWriter, r *http.Request) {
	var input services.VoteInput
	if err := decodeJSON(r, &input); err != nil {
		respondError(w, err)
		return
	}
	if input.PollID == "" || input.FingerprintID == "" {
		respondError(w, BadRequest("poll_id and fingerprint_id are required"))
		return
	}

	vote, err := h.Voting.RegisterVote(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, vote)
}

// handleVoteStatus reports whether a device has voted in a poll
func (h *Handlers) handleVoteStatus(w http.ResponseWriter, r *http.Request) {
	pollID := r.URL.Query().Get("poll_id")
	fingerprintID := r.URL.Query().Get("fingerprint_id")
	if pollID == "" || fingerprintID == "" {
		respondError(w, BadRequest("poll_id and fingerprint_id are required"))
		return
	}

	voted, err := h.Voting.HasVoted(r.Context(), pollID, fingerprintID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]bool{"has_voted": voted})
}

// handleDeleteVote removes a vote and re-broadcasts the poll's results
func (h *Handlers) handleDeleteVote(w http.ResponseWriter, r *http.Request) {
	err := h.Voting.DeleteVote(r.Context(), chi.URLParam(r, "id"), auth.AdminID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}
