// Package domain contains core business types and interfaces.
//
// This file defines referral codes and redemptions. Code generation and
// format rules live in the referral package.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReferralCode is a user's shareable attribution code.
type ReferralCode struct {
	Code      string     `json:"code"`
	UserID    uuid.UUID  `json:"-"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// IsExpired reports whether the code has expired at now.
func (c *ReferralCode) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Referral records that ReferredID signed up with ReferrerID's code.
type Referral struct {
	ID         uuid.UUID `json:"id"`
	ReferrerID uuid.UUID `json:"referrerId"`
	ReferredID uuid.UUID `json:"referredId"`
	Code       string    `json:"code"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ReferralSummary is what a user sees about their own referral code.
type ReferralSummary struct {
	Code                string        `json:"code"`
	ExpiresAt           *time.Time    `json:"expiresAt,omitempty"`
	SuccessfulReferrals int           `json:"successfulReferrals"`
	Limits              ListLimitInfo `json:"limits"`
}
