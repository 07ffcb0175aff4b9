package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the opaque actor a request runs as. The rest of the service
// treats Username as an untrusted label.
type Identity struct {
	Username string
	Role     string
}

func (i Identity) IsAdmin() bool {
	return i.Role == "admin"
}

// TokenValidator turns a bearer token into an Identity.
type TokenValidator interface {
	Validate(ctx context.Context, tokenString string) (Identity, error)
}

// Tokens issues and validates HS256 JWTs with sub and role claims.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("auth secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (t *Tokens) Issue(identity Identity) (string, error) {
	if identity.Username == "" {
		return "", fmt.Errorf("username is required")
	}
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  identity.Username,
		"role": identity.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(t.ttl).Unix(),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) Validate(_ context.Context, tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("token verification failed: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("parse claims: unsupported claim type %T", token.Claims)
	}

	identity := Identity{}
	if sub, ok := claims["sub"].(string); ok {
		identity.Username = sub
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = role
	}
	if identity.Username == "" {
		return Identity{}, fmt.Errorf("token is missing sub claim")
	}
	return identity, nil
}
