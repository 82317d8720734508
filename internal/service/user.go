// Package service contains the business logic layer.
//
// This file resolves accounts for the HTTP layer. Sessions are created by
// the sign-in service; this server only looks them up.
package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"

	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/repository"
	"github.com/google/uuid"
)

// sessionTokenLength is the hex length of a 32-byte session token.
const sessionTokenLength = 64

// UserService defines account lookups.
type UserService interface {
	// GetBySessionToken resolves the raw session cookie value to its user.
	// Unknown, malformed or expired tokens return domain.EUNAUTHORIZED.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// GetByID returns domain.ENOTFOUND for unknown users.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// UpdateStripeCustomer saves the Stripe customer ID for a user.
	UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error
}

// UserStore is the storage used by the user service.
type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	GetUserBySessionTokenHash(ctx context.Context, tokenHash string) (repository.User, error)
	SetUserStripeCustomerID(ctx context.Context, id uuid.UUID, stripeCustomerID string) error
}

type userService struct {
	store UserStore
}

func NewUserService(store UserStore) UserService {
	return &userService{store: store}
}

func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "user.get_by_session_token"

	if len(token) != sessionTokenLength {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	// The query filters expired sessions.
	row, err := s.store.GetUserBySessionTokenHash(ctx, hashSessionToken(token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to retrieve session")
	}
	return repoUserToDomain(row), nil
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "user.get_by_id"

	row, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(op, "user", id.String())
	}
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}
	return repoUserToDomain(row), nil
}

func (s *userService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error {
	const op = "user.update_stripe_customer"

	if err := s.store.SetUserStripeCustomerID(ctx, userID, stripeCustomerID); err != nil {
		return domain.Internal(err, op, "Failed to update Stripe customer ID")
	}
	return nil
}

func hashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func repoUserToDomain(u repository.User) *domain.User {
	return &domain.User{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		StripeCustomerID:   domain.NullStringValue(u.StripeCustomerID),
		SubscriptionStatus: domain.SubscriptionStatus(u.SubscriptionStatus),
		SubscriptionPlan:   domain.SubscriptionPlan(domain.NullStringValue(u.SubscriptionPlan)),
		SubscriptionID:     domain.NullStringValue(u.SubscriptionID),
		ReferredBy:         domain.NullUUIDValue(u.ReferredBy),
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
