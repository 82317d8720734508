package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type User struct {
	ID                 uuid.UUID
	Email              string
	Name               string
	StripeCustomerID   sql.NullString
	SubscriptionStatus string
	SubscriptionPlan   sql.NullString
	SubscriptionID     sql.NullString
	ReferredBy         uuid.NullUUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type PrayerList struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Description string
	Visibility  string
	DuaIds      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ReferralCode struct {
	Code      string
	UserID    uuid.UUID
	ExpiresAt sql.NullTime
	CreatedAt time.Time
}

type Referral struct {
	ID         uuid.UUID
	ReferrerID uuid.UUID
	ReferredID uuid.UUID
	Code       string
	CreatedAt  time.Time
}

type ListPurchase struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Lists           int32
	StripeSessionID string
	CreatedAt       time.Time
}

type ImageGeneration struct {
	UserID           uuid.UUID
	GenerationsToday int32
	LastGeneratedAt  sql.NullTime
	TotalGenerations int32
}

type BillingEvent struct {
	ID         string
	EventType  string
	Payload    pqtype.NullRawMessage
	ReceivedAt time.Time
}
