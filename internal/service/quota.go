// Package service contains the business logic layer.
//
// This file implements the quota service, which gathers raw account counts
// from storage and runs them through the list and share-image calculators.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/repository"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService defines operations for checking quota limits.
type QuotaService interface {
	// ListLimit returns the prayer-list allowance for a user.
	ListLimit(ctx context.Context, user *domain.User) (domain.ListLimitInfo, error)

	// ImageLimit returns today's share-image allowance for a user.
	ImageLimit(ctx context.Context, userID uuid.UUID) (domain.ImageLimitInfo, error)

}

// QuotaStore is the storage the quota calculations read from.
// *repository.Queries satisfies it.
type QuotaStore interface {
	GetAccountCounts(ctx context.Context, userID uuid.UUID) (repository.AccountCounts, error)
	GetImageGeneration(ctx context.Context, userID uuid.UUID) (repository.ImageGeneration, error)
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	store   QuotaStore
	policy  domain.ListBonusPolicy
	limiter *domain.ImageLimiter
	logger  *slog.Logger
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(store QuotaStore, policy domain.ListBonusPolicy, limiter *domain.ImageLimiter, logger *slog.Logger) QuotaService {
	return &quotaService{
		store:   store,
		policy:  policy,
		limiter: limiter,
		logger:  logger,
	}
}

func (s *quotaService) ListLimit(ctx context.Context, user *domain.User) (domain.ListLimitInfo, error) {
	return listLimitFrom(ctx, s.store, s.policy, user)
}

func (s *quotaService) ImageLimit(ctx context.Context, userID uuid.UUID) (domain.ImageLimitInfo, error) {
	const op = "quota.image_limit"

	usage, err := imageUsage(ctx, s.store, userID)
	if err != nil {
		s.logger.Error("failed to load image usage", "user_id", userID, "error", err)
		return domain.ImageLimitInfo{}, domain.Internal(err, op, "failed to load image usage")
	}
	return s.limiter.Evaluate(usage)
}

func listLimitFrom(ctx context.Context, store QuotaStore, policy domain.ListBonusPolicy, user *domain.User) (domain.ListLimitInfo, error) {
	const op = "quota.list_limit"

	counts, err := store.GetAccountCounts(ctx, user.ID)
	if err != nil {
		return domain.ListLimitInfo{}, domain.Internal(err, op, "failed to load account counts")
	}
	return policy.Evaluate(accountFacts(counts, user))
}

func accountFacts(counts repository.AccountCounts, user *domain.User) domain.AccountFacts {
	return domain.AccountFacts{
		ListCount:           int(counts.Lists),
		SuccessfulReferrals: int(counts.Referrals),
		PurchasedLists:      int(counts.PurchasedLists),
		Subscribed:          user.IsSubscribed(),
	}
}

// imageUsage loads generation counters. A user who never generated an image
// has no row and zero usage.
func imageUsage(ctx context.Context, store QuotaStore, userID uuid.UUID) (domain.ImageUsage, error) {
	row, err := store.GetImageGeneration(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ImageUsage{}, nil
	}
	if err != nil {
		return domain.ImageUsage{}, err
	}
	return imageUsageFromRow(row), nil
}

func imageUsageFromRow(row repository.ImageGeneration) domain.ImageUsage {
	return domain.ImageUsage{
		GenerationsToday: int(row.GenerationsToday),
		LastGeneratedAt:  domain.NullTimeValue(row.LastGeneratedAt),
		TotalGenerations: int(row.TotalGenerations),
	}
}
