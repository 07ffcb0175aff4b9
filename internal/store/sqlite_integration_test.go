package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Blackhawkup/sql-bot/internal/query"
)

// These tests exercise the real SQLite path end to end: migrations, the
// audit log, and the atomic usage upsert, without external infrastructure.

func openTestStore(t *testing.T) *storeHandles {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "sqlbot-test.db")
	// A single pooled connection keeps SQLite out of SQLITE_BUSY territory.
	db, dialect, err := Open(context.Background(), Config{DSN: dsn, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if dialect != DialectSQLite {
		t.Fatalf("dialect = %q, want sqlite", dialect)
	}

	applied, err := NewRunner(dialect).Up(context.Background(), db, 0)
	if err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if applied == 0 {
		t.Fatal("no migrations applied")
	}

	return &storeHandles{
		audit: NewAuditLog(db),
		usage: NewUsage(db),
		users: NewUsers(db),
	}
}

type storeHandles struct {
	audit *AuditLog
	usage *Usage
	users *Users
}

func TestSQLiteUsageIncrementSemantics(t *testing.T) {
	handles := openTestStore(t)
	ctx := context.Background()

	if err := handles.usage.RecordColumns(ctx, "alice", []string{"id", "id", "name"}); err != nil {
		t.Fatalf("RecordColumns() error = %v", err)
	}
	if err := handles.usage.RecordColumns(ctx, "alice", []string{"id", "id", "name"}); err != nil {
		t.Fatalf("RecordColumns() error = %v", err)
	}

	summary, err := handles.usage.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	counts := map[string]int64{}
	for _, entry := range summary {
		counts[entry.Username+"/"+entry.Column] = entry.Count
	}
	if counts["alice/id"] != 4 {
		t.Fatalf("alice/id = %d, want 4", counts["alice/id"])
	}
	if counts["alice/name"] != 2 {
		t.Fatalf("alice/name = %d, want 2", counts["alice/name"])
	}
}

func TestSQLiteUsageConcurrentIncrementsConverge(t *testing.T) {
	handles := openTestStore(t)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- handles.usage.RecordColumns(ctx, "bob", []string{"x"})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("RecordColumns() error = %v", err)
		}
	}

	summary, err := handles.usage.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	for _, entry := range summary {
		if entry.Username == "bob" && entry.Column == "x" {
			if entry.Count != workers {
				t.Fatalf("bob/x = %d, want %d", entry.Count, workers)
			}
			return
		}
	}
	t.Fatal("bob/x counter missing")
}

func TestSQLiteAuditRoundTrip(t *testing.T) {
	handles := openTestStore(t)
	ctx := context.Background()

	durationMS := int64(3)
	rowsAffected := int64(2)
	if err := handles.audit.Record(ctx, query.LogEntry{
		Username:     "alice",
		SQL:          "SELECT 1",
		Status:       "ok",
		DurationMS:   &durationMS,
		RowsAffected: &rowsAffected,
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	message := "boom"
	if err := handles.audit.Record(ctx, query.LogEntry{
		Username:     "alice",
		SQL:          "SELECT nope",
		Status:       "error",
		DurationMS:   &durationMS,
		ErrorMessage: &message,
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := handles.audit.Record(ctx, query.LogEntry{
		Username: "bob",
		SQL:      "SELECT 2",
		Status:   "ok",
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	logs, err := handles.audit.ListLogs(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("len(logs) = %d, want 2", len(logs))
	}
	for _, log := range logs {
		if log.Username != "alice" {
			t.Fatalf("Username = %q", log.Username)
		}
	}

	limited, err := handles.audit.ListLogs(ctx, "", 1)
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("len(limited) = %d, want 1", len(limited))
	}
}

func TestSQLiteUserLifecycle(t *testing.T) {
	handles := openTestStore(t)
	ctx := context.Background()

	created, err := handles.users.Create(ctx, CreateUserInput{Username: "carol", Password: "pw", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == 0 {
		t.Fatal("ID not assigned")
	}

	fetched, err := handles.users.GetByUsername(ctx, "carol")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if fetched.Role != RoleAdmin {
		t.Fatalf("Role = %q", fetched.Role)
	}
	if !VerifyPassword("carol", "pw", fetched.PasswordHash) {
		t.Fatal("stored hash does not verify")
	}

	deleted, err := handles.users.Delete(ctx, "carol")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !deleted {
		t.Fatal("expected deleted=true")
	}
	if _, err := handles.users.GetByUsername(ctx, "carol"); err != ErrNotFound {
		t.Fatalf("error = %v, want %v", err, ErrNotFound)
	}
}
