package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/Blackhawkup/sql-bot/internal/observability"
)

// ColumnUsage is one per-user per-column occurrence counter.
type ColumnUsage struct {
	Username string `json:"username"`
	Column   string `json:"column"`
	Count    int64  `json:"count"`
}

// Usage owns the column_usage table. Counters only ever go up.
type Usage struct {
	db *sql.DB
}

func NewUsage(db *sql.DB) *Usage {
	return &Usage{db: db}
}

// RecordColumns bumps the counter for every column occurrence in the call.
// Duplicates within one call each count. The increment is a single
// conditional upsert per counter row, so concurrent calls for the same
// (user, column) pair cannot lose updates; a select-then-update pair here
// would race.
func (u *Usage) RecordColumns(ctx context.Context, username string, columns []string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(columns) == 0 {
		return nil
	}

	occurrences := make(map[string]int64, len(columns))
	for _, column := range columns {
		if column == "" {
			continue
		}
		occurrences[column]++
	}

	names := make([]string, 0, len(occurrences))
	for name := range occurrences {
		names = append(names, name)
	}
	sort.Strings(names)

	upsert := `
INSERT INTO column_usage (username, column_name, count, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (username, column_name)
DO UPDATE SET count = column_usage.count + excluded.count, updated_at = excluded.updated_at`

	total := 0
	for _, name := range names {
		if _, err := u.db.ExecContext(ctx, upsert, username, name, occurrences[name], time.Now().UTC()); err != nil {
			return fmt.Errorf("upsert column usage %q: %w", name, err)
		}
		total += int(occurrences[name])
	}
	observability.AddUsageIncrements(total)
	return nil
}

// Summarize returns every counter, for the schema-analysis consumer.
func (u *Usage) Summarize(ctx context.Context) ([]ColumnUsage, error) {
	rows, err := u.db.QueryContext(ctx, `
SELECT username, column_name, count
FROM column_usage
ORDER BY username ASC, column_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("summarize column usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	usage := make([]ColumnUsage, 0)
	for rows.Next() {
		var entry ColumnUsage
		if err := rows.Scan(&entry.Username, &entry.Column, &entry.Count); err != nil {
			return nil, fmt.Errorf("scan column usage row: %w", err)
		}
		usage = append(usage, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column usage rows: %w", err)
	}
	return usage, nil
}
