package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Blackhawkup/sql-bot/internal/analytics"
	"github.com/Blackhawkup/sql-bot/internal/auth"
	"github.com/Blackhawkup/sql-bot/internal/store"
)

type addUserRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	Schema   *string `json:"schema"`
}

type removeUserRequest struct {
	Username string `json:"username"`
}

func requireAdmin(r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	return identity, ok && identity.IsAdmin()
}

func handleAddUser(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(r); !ok {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", "admin role is required", false, nil)
		return
	}
	if deps.Users == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "USERS_NOT_CONFIGURED", "user store is not configured", false, nil)
		return
	}

	var request addUserRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid add-user request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Username) == "" || request.Password == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "CREDENTIALS_REQUIRED", "username and password are required", false, nil)
		return
	}
	role := request.Role
	if role == "" {
		role = store.RoleUser
	}
	if role != store.RoleUser && role != store.RoleAdmin {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ROLE", "role must be user or admin", false, nil)
		return
	}

	user, err := deps.Users.Create(r.Context(), store.CreateUserInput{
		Username:   request.Username,
		Password:   request.Password,
		Role:       role,
		SchemaHint: request.Schema,
	})
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "USER_CREATE_FAILED", "failed to create user", false, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "id": user.ID})
}

func handleRemoveUser(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(r); !ok {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", "admin role is required", false, nil)
		return
	}
	if deps.Users == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "USERS_NOT_CONFIGURED", "user store is not configured", false, nil)
		return
	}

	var request removeUserRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid remove-user request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Username) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "USERNAME_REQUIRED", "username is required", false, nil)
		return
	}

	deleted, err := deps.Users.Delete(r.Context(), request.Username)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "USER_DELETE_FAILED", "failed to delete user", false, map[string]any{"details": err.Error()})
		return
	}
	if !deleted {
		writeError(r.Context(), w, http.StatusNotFound, "USER_NOT_FOUND", "user was not found", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func handleAnalyzeColumns(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(r); !ok {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", "admin role is required", false, nil)
		return
	}
	if deps.Usage == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "USAGE_NOT_CONFIGURED", "usage store is not configured", false, nil)
		return
	}

	usage, err := deps.Usage.Summarize(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "USAGE_READ_FAILED", "failed to read column usage", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"usage":    usage,
		"analysis": analytics.AnalyzeColumnUsage(usage),
	})
}
