package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/speakwell/speakwell/internal/analysis"
	"github.com/speakwell/speakwell/internal/auth"
	"github.com/speakwell/speakwell/internal/media"
	"github.com/speakwell/speakwell/internal/store"
)

// maxUploadBytes bounds the size of one uploaded recording.
const maxUploadBytes = 32 << 20

// handleSpeechStart opens a new recording session for the user.
func (s *Server) handleSpeechStart(w http.ResponseWriter, r *http.Request) {
	info, err := s.sessions.Start(r.Context(), auth.Username(r.Context()))
	if err != nil {
		if errors.Is(err, ErrSessionActive) {
			respondError(w, http.StatusConflict, "a recording session is already active")
			return
		}
		s.logger.Error("start session failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// handleSpeechStop closes the recording session, runs the uploaded audio
// through the analysis pipeline, persists the result, and returns it.
//
// Expects a multipart form with a session_id field and an audio file part.
func (s *Server) handleSpeechStop(w http.ResponseWriter, r *http.Request) {
	username := auth.Username(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	sessionID := r.FormValue("session_id")
	if _, err := s.sessions.Stop(r.Context(), username, sessionID); err != nil {
		respondError(w, http.StatusBadRequest, "no matching recording session")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	uploadPath, err := s.media.SaveUpload(filepath.Ext(header.Filename), file)
	if err != nil {
		s.logger.Error("save upload failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to store recording")
		return
	}
	defer func() {
		if err := s.media.RemoveUpload(uploadPath); err != nil {
			s.logger.Warn("remove upload failed", "path", uploadPath, "error", err)
		}
	}()

	clip, err := s.decoder.Decode(r.Context(), uploadPath)
	if err != nil {
		if errors.Is(err, media.ErrDecode) {
			respondError(w, http.StatusBadRequest, "could not decode audio")
			return
		}
		s.logger.Error("decode failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to process recording")
		return
	}

	result, err := s.analyzer.Run(r.Context(), clip)
	if err != nil {
		if errors.Is(err, analysis.ErrNoSpeech) {
			respondError(w, http.StatusBadRequest, "could not understand audio")
			return
		}
		s.logger.Error("analysis failed", "session_id", sessionID, "error", err)
		respondError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	rec := &store.Recording{
		SessionID:     sessionID,
		Username:      username,
		Transcript:    result.Transcript,
		CorrectedText: result.Grammar.CorrectedText,
		GrammarScore:  result.Grammar.Score,
		Fluency:       result.Fluency,
		Errors:        result.Grammar.Errors,
		AudioFile:     result.AudioFile,
	}
	if err := s.recordings.SaveAnalysis(r.Context(), rec); err != nil {
		s.logger.Error("save analysis failed", "session_id", sessionID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save analysis")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// handleSpeechAudio streams a synthesized response file.
func (s *Server) handleSpeechAudio(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	f, err := s.media.OpenSynthesized(filename)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			respondError(w, http.StatusNotFound, "audio file not found")
			return
		}
		s.logger.Error("open synthesized audio failed", "filename", filename, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to open audio file")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, filename, time.Time{}, f)
}
