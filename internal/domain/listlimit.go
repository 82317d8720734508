// Package domain contains core business types and interfaces.
//
// This file implements the tiered prayer-list limit. A user's allowance is a
// base allotment plus additive bonuses earned through referrals, one-off list
// pack purchases and an active subscription.
package domain

// ListLimitBreakdown holds the additive components of a list limit.
type ListLimitBreakdown struct {
	Base         int `json:"base"`
	Referral     int `json:"referral"`
	Purchase     int `json:"purchase"`
	Subscription int `json:"subscription"`
}

// Total returns the sum of all components.
func (b ListLimitBreakdown) Total() int {
	return b.Base + b.Referral + b.Purchase + b.Subscription
}

// ListLimitInfo is the computed list allowance for a user. It is never
// persisted; it is recomputed from raw counts on every request.
type ListLimitInfo struct {
	Current           int                `json:"current"`
	Limit             int                `json:"limit"`
	Remaining         int                `json:"remaining"`
	CanCreate         bool               `json:"canCreate"`
	Breakdown         ListLimitBreakdown `json:"breakdown"`
	HasSubscription   bool               `json:"hasSubscription"`
	ReferralPotential int                `json:"referralPotential"`
}

// ProgressPercent returns current usage as a percentage of the limit,
// capped at 100. A non-positive limit reports 0.
func (i ListLimitInfo) ProgressPercent() int {
	if i.Limit <= 0 {
		return 0
	}
	pct := i.Current * 100 / i.Limit
	if pct > 100 {
		return 100
	}
	return pct
}

// CalculateListLimit derives a ListLimitInfo from the current list count and
// the bonus breakdown. referralPotential is passed through untouched.
//
// Negative inputs are rejected rather than clamped: a negative count means
// upstream accounting is wrong and hiding it would grant or deny lists
// silently.
func CalculateListLimit(current int, breakdown ListLimitBreakdown, referralPotential int) (ListLimitInfo, error) {
	const op = "limits.calculate_list"

	ve := &ValidationError{Op: op}
	checkNonNegative(ve, "current", current)
	checkNonNegative(ve, "base", breakdown.Base)
	checkNonNegative(ve, "referral", breakdown.Referral)
	checkNonNegative(ve, "purchase", breakdown.Purchase)
	checkNonNegative(ve, "subscription", breakdown.Subscription)
	checkNonNegative(ve, "referral_potential", referralPotential)
	if err := ve.OrNil(); err != nil {
		return ListLimitInfo{}, err
	}

	limit := breakdown.Total()
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}

	return ListLimitInfo{
		Current:           current,
		Limit:             limit,
		Remaining:         remaining,
		CanCreate:         current < limit,
		Breakdown:         breakdown,
		HasSubscription:   breakdown.Subscription > 0,
		ReferralPotential: referralPotential,
	}, nil
}

// ListBonusPolicy converts raw account facts into a ListLimitBreakdown.
type ListBonusPolicy struct {
	BaseLists         int // Lists every account gets
	ListsPerReferral  int // Lists granted per successful referral
	MaxReferralBonus  int // Referrals that still earn a bonus
	SubscriptionBonus int // Lists granted while subscribed
}

// DefaultListBonusPolicy returns the standard allowance.
func DefaultListBonusPolicy() ListBonusPolicy {
	return ListBonusPolicy{
		BaseLists:         1,
		ListsPerReferral:  1,
		MaxReferralBonus:  5,
		SubscriptionBonus: 10,
	}
}

// AccountFacts are the raw counters a ListBonusPolicy works from.
type AccountFacts struct {
	ListCount           int
	SuccessfulReferrals int
	PurchasedLists      int
	Subscribed          bool
}

// Breakdown returns the bonus breakdown and the referral potential, i.e. the
// lists the user could still earn by referring others.
func (p ListBonusPolicy) Breakdown(facts AccountFacts) (ListLimitBreakdown, int) {
	counted := facts.SuccessfulReferrals
	if counted > p.MaxReferralBonus {
		counted = p.MaxReferralBonus
	}
	if counted < 0 {
		counted = 0
	}

	b := ListLimitBreakdown{
		Base:     p.BaseLists,
		Referral: counted * p.ListsPerReferral,
		Purchase: facts.PurchasedLists,
	}
	if facts.Subscribed {
		b.Subscription = p.SubscriptionBonus
	}

	potential := (p.MaxReferralBonus - counted) * p.ListsPerReferral
	if potential < 0 {
		potential = 0
	}
	return b, potential
}

// Evaluate computes the ListLimitInfo for the given facts.
func (p ListBonusPolicy) Evaluate(facts AccountFacts) (ListLimitInfo, error) {
	b, potential := p.Breakdown(facts)
	return CalculateListLimit(facts.ListCount, b, potential)
}

func checkNonNegative(ve *ValidationError, field string, v int) {
	if v < 0 {
		ve.Add(field, "must not be negative")
	}
}
