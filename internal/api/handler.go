package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Blackhawkup/sql-bot/internal/auth"
	"github.com/Blackhawkup/sql-bot/internal/config"
	"github.com/Blackhawkup/sql-bot/internal/nl2sql"
	"github.com/Blackhawkup/sql-bot/internal/observability"
	"github.com/Blackhawkup/sql-bot/internal/query"
	"github.com/Blackhawkup/sql-bot/internal/store"
)

// QueryRunner is the executor surface the handlers need.
type QueryRunner interface {
	RunQuery(ctx context.Context, username, sqlText string, limit int) ([]query.Row, error)
	TestConnection(ctx context.Context) query.Health
}

type UserStore interface {
	Create(ctx context.Context, in store.CreateUserInput) (store.User, error)
	Delete(ctx context.Context, username string) (bool, error)
	GetByUsername(ctx context.Context, username string) (store.User, error)
}

type AuditStore interface {
	ListLogs(ctx context.Context, username string, limit int) ([]store.QueryLog, error)
}

type UsageStore interface {
	RecordColumns(ctx context.Context, username string, columns []string) error
	Summarize(ctx context.Context) ([]store.ColumnUsage, error)
}

type TokenIssuer interface {
	Issue(identity auth.Identity) (string, error)
}

type Dependencies struct {
	Logger         *slog.Logger
	AuthMiddleware func(http.Handler) http.Handler
	Tokens         TokenIssuer
	Users          UserStore
	Audit          AuditStore
	Usage          UsageStore
	Executor       QueryRunner
	Translator     nl2sql.Translator
	PreviewRows    int
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	// Unauthenticated on purpose: health pollers probe the target database
	// through this route and must always get a tagged result back.
	mux.HandleFunc("GET /api/test-db", func(w http.ResponseWriter, r *http.Request) {
		handleTestDB(deps, w, r)
	})

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		handleLogin(deps, w, r)
	})

	protected := http.NewServeMux()
	protected.HandleFunc("POST /api/generate-sql", func(w http.ResponseWriter, r *http.Request) {
		handleGenerateSQL(deps, w, r)
	})
	protected.HandleFunc("POST /api/run-query", func(w http.ResponseWriter, r *http.Request) {
		handleRunQuery(deps, w, r)
	})
	protected.HandleFunc("POST /api/retry-query", func(w http.ResponseWriter, r *http.Request) {
		handleRetryQuery(deps, w, r)
	})
	protected.HandleFunc("GET /api/logs", func(w http.ResponseWriter, r *http.Request) {
		handleListLogs(deps, w, r)
	})
	protected.HandleFunc("POST /api/admin/add-user", func(w http.ResponseWriter, r *http.Request) {
		handleAddUser(deps, w, r)
	})
	protected.HandleFunc("POST /api/admin/remove-user", func(w http.ResponseWriter, r *http.Request) {
		handleRemoveUser(deps, w, r)
	})
	protected.HandleFunc("GET /api/admin/analyze-columns", func(w http.ResponseWriter, r *http.Request) {
		handleAnalyzeColumns(deps, w, r)
	})

	var protectedHandler http.Handler
	if deps.AuthMiddleware != nil {
		protectedHandler = deps.AuthMiddleware(protected)
	} else {
		if deps.Logger != nil {
			deps.Logger.Error("auth middleware missing; protected routes disabled")
		}
		protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "authentication is not configured", false, nil)
		})
	}
	mux.Handle("POST /api/generate-sql", protectedHandler)
	mux.Handle("POST /api/run-query", protectedHandler)
	mux.Handle("POST /api/retry-query", protectedHandler)
	mux.Handle("GET /api/logs", protectedHandler)
	mux.Handle("POST /api/admin/add-user", protectedHandler)
	mux.Handle("POST /api/admin/remove-user", protectedHandler)
	mux.Handle("GET /api/admin/analyze-columns", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Trace-ID"},
			MaxAge:         300,
		}),
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
