package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/speakwell/speakwell/internal/auth"
	"github.com/speakwell/speakwell/internal/store"
)

// maxCredentialBody bounds the size of register/login request bodies.
const maxCredentialBody = 4 << 10

// credentials is the request body for /auth/register and /auth/login.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// decodeCredentials reads and validates a credentials body.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var creds credentials
	body := http.MaxBytesReader(w, r.Body, maxCredentialBody)
	if err := json.NewDecoder(body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return credentials{}, false
	}
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return credentials{}, false
	}
	return creds, true
}

// handleRegister creates a new account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid password")
		return
	}

	if err := s.users.CreateUser(r.Context(), creds.Username, hash); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			respondError(w, http.StatusConflict, "username already taken")
			return
		}
		s.logger.Error("create user failed", "error", err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"username": strings.ToLower(creds.Username),
	})
}

// handleLogin verifies credentials and issues a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := s.users.UserByUsername(r.Context(), creds.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.logger.Error("fetch user failed", "error", err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if err := auth.VerifyPassword(user.PasswordHash, creds.Password); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		s.logger.Error("issue token failed", "error", err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"token":    token,
		"username": user.Username,
	})
}
