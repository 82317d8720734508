// Package auth provides authentication context helpers.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/getdoa/getdoa/internal/domain"
	"github.com/google/uuid"
)

type contextKey struct{}

var userContextKey contextKey

// GetUser returns the user resolved from the session cookie, or nil for
// anonymous requests.
func GetUser(ctx context.Context) *domain.User {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

// GetUserFromRequest is GetUser on the request context.
func GetUserFromRequest(r *http.Request) *domain.User {
	return GetUser(r.Context())
}

// UserID returns the signed-in user's ID.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	if user := GetUser(ctx); user != nil {
		return user.ID, true
	}
	return uuid.Nil, false
}

// SetUser stores a user in the context. Called by the session middleware.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
