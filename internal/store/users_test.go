package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash := HashPassword("alice", "hunter2")
	if hash == "" || hash == "hunter2" {
		t.Fatalf("HashPassword() = %q", hash)
	}
	if !VerifyPassword("alice", "hunter2", hash) {
		t.Fatal("VerifyPassword() = false for correct password")
	}
	if VerifyPassword("alice", "wrong", hash) {
		t.Fatal("VerifyPassword() = true for wrong password")
	}
	if VerifyPassword("bob", "hunter2", hash) {
		t.Fatal("VerifyPassword() = true for wrong username key")
	}
}

func TestCreateUser(t *testing.T) {
	db, mock := newSQLMock(t)
	users := NewUsers(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO users (username, password_hash, role, schema_hint, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING id`)).
		WithArgs("alice", HashPassword("alice", "hunter2"), "user", nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	user, err := users.Create(context.Background(), CreateUserInput{Username: "alice", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID != 11 {
		t.Fatalf("ID = %d", user.ID)
	}
	if user.Role != RoleUser {
		t.Fatalf("Role = %q", user.Role)
	}
	assertSQLMock(t, mock)
}

func TestDeleteUser(t *testing.T) {
	db, mock := newSQLMock(t)
	users := NewUsers(db)

	mock.ExpectExec(regexp.QuoteMeta(`
DELETE FROM users
WHERE username = $1`)).
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := users.Delete(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !deleted {
		t.Fatal("expected deleted=true")
	}
	assertSQLMock(t, mock)
}

func TestDeleteUserMissing(t *testing.T) {
	db, mock := newSQLMock(t)
	users := NewUsers(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users`)).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := users.Delete(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted {
		t.Fatal("expected deleted=false")
	}
	assertSQLMock(t, mock)
}

func TestGetUserByUsernameNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	users := NewUsers(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT id, username, password_hash, role, schema_hint, created_at, updated_at
FROM users
WHERE username = $1`)).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := users.GetByUsername(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, ErrNotFound)
	}
	assertSQLMock(t, mock)
}
