// Package session turns a bearer credential into a typed current-user value.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned when no usable credential is present.
var ErrUnauthenticated = errors.New("unauthenticated")

// Claims are the bearer token claims the gateway relies on.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Session is the authenticated caller. Token is forwarded to upstream services.
type Session struct {
	Token   string
	Email   string
	Subject string
}

// FromBearer parses an Authorization header value ("Bearer <jwt>") signed with secret.
func FromBearer(header, secret string) (Session, error) {
	const prefix = "Bearer "
	if header == "" || !strings.HasPrefix(header, prefix) {
		return Session{}, ErrUnauthenticated
	}
	return Parse(strings.TrimSpace(header[len(prefix):]), secret)
}

// Parse validates an HS256 token and extracts the caller. A token without an
// email claim is rejected because every page flow needs the caller's email.
func Parse(tokenStr, secret string) (Session, error) {
	if tokenStr == "" {
		return Session{}, ErrUnauthenticated
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !token.Valid {
		return Session{}, ErrUnauthenticated
	}
	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return Session{}, fmt.Errorf("%w: email claim missing", ErrUnauthenticated)
	}
	return Session{Token: tokenStr, Email: email, Subject: claims.Subject}, nil
}

type contextKey struct{}

// NewContext returns a context carrying s.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx or ErrUnauthenticated.
func FromContext(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(contextKey{}).(Session)
	if !ok || s.Token == "" || s.Email == "" {
		return Session{}, ErrUnauthenticated
	}
	return s, nil
}
