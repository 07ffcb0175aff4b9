package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Blackhawkup/sql-bot/internal/auth"
	"github.com/Blackhawkup/sql-bot/internal/nl2sql"
	"github.com/Blackhawkup/sql-bot/internal/observability"
	"github.com/Blackhawkup/sql-bot/internal/query"
)

type runQueryRequest struct {
	SQL   string `json:"sql"`
	Limit *int   `json:"limit"`
}

type runQueryResponse struct {
	Status string      `json:"status"`
	Rows   []query.Row `json:"rows"`
}

type generateSQLRequest struct {
	Prompt string `json:"prompt"`
	Schema string `json:"schema,omitempty"`
}

type generateSQLResponse struct {
	Status  string      `json:"status"`
	SQL     string      `json:"sql"`
	Preview []query.Row `json:"preview"`
}

func handleRunQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHORIZED", "identity is required", false, nil)
		return
	}

	var request runQueryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	limit := 0
	if request.Limit != nil {
		limit = *request.Limit
	}

	rows, err := deps.Executor.RunQuery(r.Context(), identity.Username, request.SQL, limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "DATABASE_ERROR", "database error", false, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, runQueryResponse{Status: "ok", Rows: rows})
}

func handleGenerateSQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATE_NOT_CONFIGURED", "sql generation is not configured", false, nil)
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHORIZED", "identity is required", false, nil)
		return
	}

	var request generateSQLRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid generation request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Prompt) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "PROMPT_REQUIRED", "prompt is required", false, nil)
		return
	}

	schemaHint := strings.TrimSpace(request.Schema)
	if schemaHint == "" && deps.Users != nil {
		if user, err := deps.Users.GetByUsername(r.Context(), identity.Username); err == nil && user.SchemaHint != nil {
			schemaHint = *user.SchemaHint
		}
	}

	result, err := deps.Translator.Translate(r.Context(), nl2sql.Request{
		Prompt:     request.Prompt,
		SchemaHint: schemaHint,
	})
	if err != nil {
		observability.ObserveTranslation(query.StatusError)
		writeError(r.Context(), w, http.StatusBadGateway, "TRANSLATE_FAILED", "failed to generate sql", true, map[string]any{"details": err.Error()})
		return
	}
	observability.ObserveTranslation(query.StatusOK)

	previewRows := deps.PreviewRows
	if previewRows <= 0 {
		previewRows = 5
	}
	preview, err := deps.Executor.RunQuery(r.Context(), identity.Username, result.SQL, previewRows)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "DATABASE_ERROR", "database error", false, map[string]any{"details": err.Error()})
		return
	}

	// Usage accounting is a side effect; a failed write never turns a
	// successful generation into an error.
	if deps.Usage != nil {
		columns := nl2sql.ExtractColumns(result.SQL)
		if len(columns) > 0 {
			if err := deps.Usage.RecordColumns(r.Context(), identity.Username, columns); err != nil && deps.Logger != nil {
				deps.Logger.WarnContext(r.Context(), "column usage record failed",
					slog.String("username", identity.Username),
					slog.Any("error", err),
				)
			}
		}
	}

	writeJSON(w, http.StatusOK, generateSQLResponse{Status: "ok", SQL: result.SQL, Preview: preview})
}

func handleRetryQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.IdentityFromContext(r.Context()); !ok {
		writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHORIZED", "identity is required", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sql": "SELECT 2;"})
}

func handleTestDB(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Executor == nil {
		writeJSON(w, http.StatusOK, query.Health{
			Status:  query.StatusError,
			Message: "Database connection failed",
			Details: "query executor is not configured",
		})
		return
	}
	writeJSON(w, http.StatusOK, deps.Executor.TestConnection(r.Context()))
}

func handleListLogs(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHORIZED", "identity is required", false, nil)
		return
	}
	if deps.Audit == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AUDIT_NOT_CONFIGURED", "audit log is not configured", false, nil)
		return
	}

	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if !identity.IsAdmin() {
		// Non-admins only ever see their own history.
		username = identity.Username
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", false, nil)
			return
		}
		limit = parsed
	}

	logs, err := deps.Audit.ListLogs(r.Context(), username, limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "AUDIT_READ_FAILED", "failed to read query logs", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "logs": logs})
}
