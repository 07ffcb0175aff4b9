// Package query executes caller-supplied SQL against the target database.
// It hides which postgres client library does the work, injects row caps,
// serves a fixed fallback dataset when no target is configured, and reports
// every execution attempt to an audit recorder.
package query

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means no target connection string is available.
	ErrNotConfigured = errors.New("target database is not configured")

	// ErrDriverUnavailable means no postgres client capability is present
	// in this process. Returned before any I/O is attempted.
	ErrDriverUnavailable = errors.New("no postgres driver capability is available")
)

// Row is one result row keyed by column name, identical for both backends.
type Row map[string]any

// DatabaseError wraps any failure during connection open, execution, or
// fetch. Backend-specific error types never escape this package.
type DatabaseError struct {
	Stage string
	Err   error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Stage, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// LogEntry describes one execution attempt for auditing.
type LogEntry struct {
	Username     string
	SQL          string
	Status       string
	DurationMS   *int64
	RowsAffected *int64
	ErrorMessage *string
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// AuditRecorder persists one LogEntry per execution attempt. A recording
// failure never alters the outcome of the query that produced it.
type AuditRecorder interface {
	Record(ctx context.Context, entry LogEntry) error
}

// Health is the tagged result of a connection probe. TestConnection always
// returns one of these and never an error, so health pollers cannot crash
// the caller.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version,omitempty"`
	Details string `json:"details,omitempty"`
}
