package store

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	SchemaHint   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Users owns the users table. Password hashing is HMAC-SHA256 keyed by the
// username; adequate for the demo accounts this service manages, not for
// anything beyond that.
type Users struct {
	db *sql.DB
}

func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

func HashPassword(username, password string) string {
	mac := hmac.New(sha256.New, []byte(username))
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifyPassword(username, password, passwordHash string) bool {
	expected := HashPassword(username, password)
	return hmac.Equal([]byte(expected), []byte(passwordHash))
}

type CreateUserInput struct {
	Username   string
	Password   string
	Role       string
	SchemaHint *string
}

func (s *Users) Create(ctx context.Context, in CreateUserInput) (User, error) {
	role := in.Role
	if role == "" {
		role = RoleUser
	}

	now := time.Now().UTC()
	insert := `
INSERT INTO users (username, password_hash, role, schema_hint, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING id`

	user := User{
		Username:     in.Username,
		PasswordHash: HashPassword(in.Username, in.Password),
		Role:         role,
		SchemaHint:   in.SchemaHint,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.QueryRowContext(ctx, insert, user.Username, user.PasswordHash, role, in.SchemaHint, now).Scan(&user.ID); err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *Users) Delete(ctx context.Context, username string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
DELETE FROM users
WHERE username = $1`, username)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete user rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *Users) GetByUsername(ctx context.Context, username string) (User, error) {
	selectUser := `
SELECT id, username, password_hash, role, schema_hint, created_at, updated_at
FROM users
WHERE username = $1`

	var user User
	if err := s.db.QueryRowContext(ctx, selectUser, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.SchemaHint,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}
