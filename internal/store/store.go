// Package store persists the service's own metadata: user accounts, the
// query audit log, and column-usage counters. It runs on PostgreSQL via
// the pgx stdlib driver, or on a local SQLite file for development. All
// statements use $1-style placeholders, which both engines accept.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectForDSN picks the engine from the DSN shape: postgres URLs go to
// pgx, everything else is treated as a SQLite file.
func DialectForDSN(dsn string) Dialect {
	trimmed := strings.TrimSpace(dsn)
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func Open(ctx context.Context, cfg Config) (*sql.DB, Dialect, error) {
	if cfg.DSN == "" {
		return nil, "", fmt.Errorf("store dsn is required")
	}

	dialect := DialectForDSN(cfg.DSN)
	driver := "pgx"
	if dialect == DialectSQLite {
		driver = "sqlite"
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("open store db: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping store db: %w", err)
	}

	return db, dialect, nil
}
