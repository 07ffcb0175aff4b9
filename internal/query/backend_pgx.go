package query

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// pgxBackend is the modern capability: the native pgx API with field
// descriptions and value slices instead of positional scan targets.
type pgxBackend struct{}

func pgxAvailable() bool { return true }

func (pgxBackend) name() string { return "pgx" }

func (pgxBackend) open(ctx context.Context, url string) (conn, error) {
	pgxConnection, err := pgx.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect target db: %w", err)
	}
	return &pgxConn{conn: pgxConnection}, nil
}

type pgxConn struct {
	conn *pgx.Conn
}

func (c *pgxConn) query(ctx context.Context, sqlText string) ([]Row, error) {
	rows, err := c.conn.Query(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := make([]Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		row := make(Row, len(fields))
		for i, field := range fields {
			row[field.Name] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

func (c *pgxConn) close() error {
	return c.conn.Close(context.Background())
}
