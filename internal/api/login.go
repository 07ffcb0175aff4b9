package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Blackhawkup/sql-bot/internal/auth"
	"github.com/Blackhawkup/sql-bot/internal/store"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	Role   string `json:"role"`
}

func handleLogin(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Tokens == nil || deps.Users == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AUTH_NOT_CONFIGURED", "authentication is not configured", false, nil)
		return
	}

	var request loginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid login request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Username) == "" || request.Password == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "CREDENTIALS_REQUIRED", "username and password are required", false, nil)
		return
	}

	user, err := deps.Users.GetByUsername(r.Context(), request.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(r.Context(), w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "USER_LOOKUP_FAILED", "failed to look up user", true, map[string]any{"details": err.Error()})
		return
	}
	if !store.VerifyPassword(user.Username, request.Password, user.PasswordHash) {
		if deps.Logger != nil {
			deps.Logger.WarnContext(r.Context(), "login rejected", slog.String("username", request.Username))
		}
		writeError(r.Context(), w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password", false, nil)
		return
	}

	token, err := deps.Tokens.Issue(auth.Identity{Username: user.Username, Role: user.Role})
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "TOKEN_ISSUE_FAILED", "failed to issue token", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Status: "ok", Token: token, Role: user.Role})
}
