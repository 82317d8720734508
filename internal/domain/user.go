// Package domain contains core business types and interfaces.
//
// This file defines the User domain type. It is separate from the repository
// row types so business helpers do not depend on the database layer.
package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the possible states of a user's subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid   SubscriptionStatus = "unpaid"
)

// SubscriptionPlan is the billing interval of a subscription.
type SubscriptionPlan string

const (
	SubscriptionPlanMonthly SubscriptionPlan = "monthly"
	SubscriptionPlanYearly  SubscriptionPlan = "yearly"
)

// User represents a registered GetDoa account.
type User struct {
	ID                 uuid.UUID
	Email              string
	Name               string
	StripeCustomerID   string
	SubscriptionStatus SubscriptionStatus
	SubscriptionPlan   SubscriptionPlan
	SubscriptionID     string
	ReferredBy         *uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsSubscribed returns true if the user has an active or trialing
// subscription. Past-due accounts keep their bonus until Stripe gives up.
func (u *User) IsSubscribed() bool {
	switch u.SubscriptionStatus {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue:
		return true
	}
	return false
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullStringValue safely extracts a string from sql.NullString.
func NullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeValue safely extracts a time pointer from sql.NullTime.
func NullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time
		return &t
	}
	return nil
}

// NullUUIDValue extracts a uuid pointer from uuid.NullUUID.
func NullUUIDValue(id uuid.NullUUID) *uuid.UUID {
	if id.Valid {
		v := id.UUID
		return &v
	}
	return nil
}
