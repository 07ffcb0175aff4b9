package query

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const pqDriverName = "postgres"

// pqBackend is the legacy capability: lib/pq through database/sql with
// positional scan targets.
type pqBackend struct{}

func (pqBackend) name() string { return "pq" }

func (pqBackend) open(ctx context.Context, url string) (conn, error) {
	db, err := sql.Open(pqDriverName, url)
	if err != nil {
		return nil, fmt.Errorf("open target db: %w", err)
	}
	// One exclusive connection per execution; no pool reuse across requests.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping target db: %w", err)
	}
	return &pqConn{db: db}, nil
}

type pqConn struct {
	db *sql.DB
}

func (c *pqConn) query(ctx context.Context, sqlText string) ([]Row, error) {
	rows, err := c.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	result := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(Row, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

func (c *pqConn) close() error {
	return c.db.Close()
}

func normalizeValue(value any) any {
	if typed, ok := value.([]byte); ok {
		return string(typed)
	}
	return value
}
