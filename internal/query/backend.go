package query

import (
	"context"
	"database/sql"
	"sync"
)

// conn is one exclusive connection to the target database. It belongs to a
// single execution and is closed before that execution returns.
type conn interface {
	query(ctx context.Context, sqlText string) ([]Row, error)
	close() error
}

// backend is one postgres client capability. Two exist: the legacy lib/pq
// path through database/sql and the modern native pgx path. Callers only
// ever see the uniform []Row shape.
type backend interface {
	name() string
	open(ctx context.Context, url string) (conn, error)
}

var (
	backendOnce sync.Once
	activeOnce  backend
)

// activeBackend picks the backend once per process. The legacy driver is
// preferred when its capability is registered; otherwise the modern one is
// used. With neither present, execution fails before any I/O.
func activeBackend() (backend, error) {
	backendOnce.Do(func() {
		activeOnce = probeBackend(sql.Drivers(), pgxAvailable())
	})
	if activeOnce == nil {
		return nil, ErrDriverUnavailable
	}
	return activeOnce, nil
}

func probeBackend(drivers []string, modernLinked bool) backend {
	registered := make(map[string]bool, len(drivers))
	for _, name := range drivers {
		registered[name] = true
	}
	if registered[pqDriverName] {
		return pqBackend{}
	}
	if modernLinked {
		return pgxBackend{}
	}
	return nil
}
