package server

import (
	"net/http"
	"strconv"

	"github.com/speakwell/speakwell/internal/auth"
	"github.com/speakwell/speakwell/internal/store"
)

// handleMe returns the authenticated user's identity.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"username": auth.Username(r.Context()),
	})
}

// handleDashboard returns the user's aggregate progress view.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.recordings.Dashboard(r.Context(), auth.Username(r.Context()))
	if err != nil {
		s.logger.Error("dashboard query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	respondJSON(w, http.StatusOK, dash)
}

// handleHistory returns the user's past recordings, newest first. An
// optional limit query parameter caps the number of entries.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	recs, err := s.recordings.History(r.Context(), auth.Username(r.Context()), limit)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if recs == nil {
		recs = []store.Recording{}
	}
	respondJSON(w, http.StatusOK, recs)
}
