package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Blackhawkup/sql-bot/internal/query"
)

// QueryLog is one persisted execution attempt.
type QueryLog struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	SQL          string    `json:"sql_query"`
	Status       string    `json:"status"`
	DurationMS   *int64    `json:"execution_time_ms"`
	RowsAffected *int64    `json:"rows_affected"`
	ErrorMessage *string   `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditLog owns the query_logs table. One row per execution attempt,
// success or failure; rows are never updated or deleted here.
type AuditLog struct {
	db *sql.DB
}

func NewAuditLog(db *sql.DB) *AuditLog {
	return &AuditLog{db: db}
}

// Record implements query.AuditRecorder.
func (l *AuditLog) Record(ctx context.Context, entry query.LogEntry) error {
	insert := `
INSERT INTO query_logs (username, sql_query, status, execution_time_ms, rows_affected, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := l.db.ExecContext(ctx, insert,
		entry.Username,
		entry.SQL,
		entry.Status,
		entry.DurationMS,
		entry.RowsAffected,
		entry.ErrorMessage,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("record query log: %w", err)
	}
	return nil
}

// ListLogs returns log entries newest first, optionally filtered by
// username. A non-positive limit falls back to 100.
func (l *AuditLog) ListLogs(ctx context.Context, username string, limit int) ([]QueryLog, error) {
	if limit <= 0 {
		limit = 100
	}

	selectLogs := `
SELECT id, username, sql_query, status, execution_time_ms, rows_affected, error_message, created_at
FROM query_logs`
	args := []any{}
	if username != "" {
		selectLogs += `
WHERE username = $1`
		args = append(args, username)
	}
	selectLogs += fmt.Sprintf(`
ORDER BY created_at DESC
LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, selectLogs, args...)
	if err != nil {
		return nil, fmt.Errorf("list query logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	logs := make([]QueryLog, 0)
	for rows.Next() {
		var log QueryLog
		if err := rows.Scan(
			&log.ID,
			&log.Username,
			&log.SQL,
			&log.Status,
			&log.DurationMS,
			&log.RowsAffected,
			&log.ErrorMessage,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan query log row: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query log rows: %w", err)
	}
	return logs, nil
}
