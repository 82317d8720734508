// Package service contains the business logic layer.
//
// This file implements referral code issuance and redemption.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/metrics"
	"github.com/getdoa/getdoa/internal/referral"
	"github.com/getdoa/getdoa/internal/repository"
	"github.com/google/uuid"
)

// maxCodeAttempts bounds retries when a generated code collides with an
// existing one.
const maxCodeAttempts = 5

// =============================================================================
// Interface Definition
// =============================================================================

// ReferralService defines operations on referral codes.
type ReferralService interface {
	// GetOrCreateCode returns the user's code, issuing one on first use.
	GetOrCreateCode(ctx context.Context, userID uuid.UUID) (*domain.ReferralCode, error)

	// Summary returns the user's code together with their list allowance.
	Summary(ctx context.Context, user *domain.User) (*domain.ReferralSummary, error)

	// Validate checks that a code is well formed, exists and has not
	// expired. It does not redeem it.
	Validate(ctx context.Context, code string) (*domain.ReferralCode, error)

	// Redeem attributes the user to the owner of code.
	Redeem(ctx context.Context, userID uuid.UUID, code string) (*domain.Referral, error)
}

// CodeGenerator produces referral codes. *referral.Generator satisfies it.
type CodeGenerator interface {
	Generate() (string, referral.Assurance, error)
}

// ReferralStore is the storage used by the referral service.
// *repository.Store satisfies it.
type ReferralStore interface {
	QuotaStore
	GetReferralCodeByUser(ctx context.Context, userID uuid.UUID) (repository.ReferralCode, error)
	GetReferralCode(ctx context.Context, code string) (repository.ReferralCode, error)
	CreateReferralCode(ctx context.Context, arg repository.CreateReferralCodeParams) (repository.ReferralCode, error)
	RedeemReferral(ctx context.Context, arg repository.CreateReferralParams) (repository.Referral, error)
}

// ReferralServiceConfig configures the referral service.
type ReferralServiceConfig struct {
	// CodeTTL is how long an issued code stays redeemable. Zero means codes
	// never expire.
	CodeTTL time.Duration

	// Policy is used to report the list allowance in summaries.
	Policy domain.ListBonusPolicy
}

// =============================================================================
// Implementation
// =============================================================================

type referralService struct {
	store     ReferralStore
	generator CodeGenerator
	cfg       ReferralServiceConfig
	now       func() time.Time
	logger    *slog.Logger
}

// NewReferralService creates a new ReferralService.
func NewReferralService(store ReferralStore, generator CodeGenerator, cfg ReferralServiceConfig, logger *slog.Logger) ReferralService {
	return &referralService{
		store:     store,
		generator: generator,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *referralService) GetOrCreateCode(ctx context.Context, userID uuid.UUID) (*domain.ReferralCode, error) {
	const op = "referral.get_or_create_code"

	existing, err := s.store.GetReferralCodeByUser(ctx, userID)
	if err == nil {
		return toDomainReferralCode(existing), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "failed to load referral code")
	}

	var expiresAt sql.NullTime
	if s.cfg.CodeTTL > 0 {
		expiresAt = sql.NullTime{Time: s.now().Add(s.cfg.CodeTTL), Valid: true}
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, assurance, err := s.generator.Generate()
		if err != nil {
			s.logger.Error("referral code generation failed", "user_id", userID, "error", err)
			return nil, domain.Internal(err, op, "failed to generate referral code")
		}
		if assurance == referral.AssuranceDegraded {
			s.logger.Warn("referral code generated from non-cryptographic source",
				"user_id", userID,
			)
		}

		created, err := s.store.CreateReferralCode(ctx, repository.CreateReferralCodeParams{
			Code:      code,
			UserID:    userID,
			ExpiresAt: expiresAt,
		})
		if err == nil {
			metrics.ReferralCodesIssued.WithLabelValues(assurance.String()).Inc()
			s.logger.Info("referral code issued", "user_id", userID, "attempt", attempt)
			return toDomainReferralCode(created), nil
		}
		if !repository.IsUniqueViolation(err) {
			return nil, domain.Internal(err, op, "failed to store referral code")
		}

		// The user may have been issued a code concurrently.
		if existing, err := s.store.GetReferralCodeByUser(ctx, userID); err == nil {
			return toDomainReferralCode(existing), nil
		}
		s.logger.Debug("referral code collision, retrying", "attempt", attempt)
	}

	return nil, domain.Errorf(domain.ECONFLICT, op, "could not allocate a unique referral code")
}

func (s *referralService) Summary(ctx context.Context, user *domain.User) (*domain.ReferralSummary, error) {
	const op = "referral.summary"

	code, err := s.GetOrCreateCode(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.GetAccountCounts(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load account counts")
	}

	limits, err := s.cfg.Policy.Evaluate(accountFacts(counts, user))
	if err != nil {
		return nil, err
	}

	return &domain.ReferralSummary{
		Code:                code.Code,
		ExpiresAt:           code.ExpiresAt,
		SuccessfulReferrals: int(counts.Referrals),
		Limits:              limits,
	}, nil
}

func (s *referralService) Validate(ctx context.Context, code string) (*domain.ReferralCode, error) {
	const op = "referral.validate"

	normalized := referral.Normalize(code)
	if !referral.IsValidFormat(normalized) {
		return nil, domain.NewValidationError(op, "code", "Referral codes are 6 letters or digits")
	}

	row, err := s.store.GetReferralCode(ctx, normalized)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.ENOTFOUND, op, "Referral code not found")
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load referral code")
	}

	rc := toDomainReferralCode(row)
	if rc.IsExpired(s.now()) {
		return nil, domain.Errorf(domain.EGONE, op, "Referral code has expired")
	}
	return rc, nil
}

func (s *referralService) Redeem(ctx context.Context, userID uuid.UUID, code string) (*domain.Referral, error) {
	const op = "referral.redeem"

	rc, err := s.Validate(ctx, code)
	if err != nil {
		metrics.ReferralRedemptions.WithLabelValues(domain.ErrorCode(err)).Inc()
		return nil, err
	}

	if rc.UserID == userID {
		metrics.ReferralRedemptions.WithLabelValues(domain.EFORBIDDEN).Inc()
		return nil, domain.Forbidden(op, "You cannot redeem your own referral code")
	}

	row, err := s.store.RedeemReferral(ctx, repository.CreateReferralParams{
		ReferrerID: rc.UserID,
		ReferredID: userID,
		Code:       rc.Code,
	})
	if errors.Is(err, repository.ErrAlreadyReferred) {
		metrics.ReferralRedemptions.WithLabelValues(domain.ECONFLICT).Inc()
		return nil, domain.Conflict(op, "A referral code has already been redeemed for this account")
	}
	if err != nil {
		metrics.ReferralRedemptions.WithLabelValues(domain.EINTERNAL).Inc()
		return nil, domain.Internal(err, op, "failed to redeem referral code")
	}

	metrics.ReferralRedemptions.WithLabelValues("ok").Inc()
	s.logger.Info("referral redeemed",
		"referrer_id", row.ReferrerID,
		"referred_id", row.ReferredID,
	)

	return &domain.Referral{
		ID:         row.ID,
		ReferrerID: row.ReferrerID,
		ReferredID: row.ReferredID,
		Code:       row.Code,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func toDomainReferralCode(row repository.ReferralCode) *domain.ReferralCode {
	return &domain.ReferralCode{
		Code:      row.Code,
		UserID:    row.UserID,
		ExpiresAt: domain.NullTimeValue(row.ExpiresAt),
		CreatedAt: row.CreatedAt,
	}
}
