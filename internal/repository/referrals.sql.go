package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const getReferralCodeByUser = `-- name: GetReferralCodeByUser :one
SELECT code, user_id, expires_at, created_at FROM referral_codes WHERE user_id = $1
`

func (q *Queries) GetReferralCodeByUser(ctx context.Context, userID uuid.UUID) (ReferralCode, error) {
	var i ReferralCode
	err := q.db.QueryRowContext(ctx, getReferralCodeByUser, userID).Scan(
		&i.Code,
		&i.UserID,
		&i.ExpiresAt,
		&i.CreatedAt,
	)
	return i, err
}

const getReferralCode = `-- name: GetReferralCode :one
SELECT code, user_id, expires_at, created_at FROM referral_codes WHERE code = $1
`

func (q *Queries) GetReferralCode(ctx context.Context, code string) (ReferralCode, error) {
	var i ReferralCode
	err := q.db.QueryRowContext(ctx, getReferralCode, code).Scan(
		&i.Code,
		&i.UserID,
		&i.ExpiresAt,
		&i.CreatedAt,
	)
	return i, err
}

const createReferralCode = `-- name: CreateReferralCode :one
INSERT INTO referral_codes (code, user_id, expires_at)
VALUES ($1, $2, $3)
RETURNING code, user_id, expires_at, created_at
`

type CreateReferralCodeParams struct {
	Code      string
	UserID    uuid.UUID
	ExpiresAt sql.NullTime
}

// CreateReferralCode inserts a code. A duplicate code or a second code for
// the same user fails with a unique violation.
func (q *Queries) CreateReferralCode(ctx context.Context, arg CreateReferralCodeParams) (ReferralCode, error) {
	var i ReferralCode
	err := q.db.QueryRowContext(ctx, createReferralCode, arg.Code, arg.UserID, arg.ExpiresAt).Scan(
		&i.Code,
		&i.UserID,
		&i.ExpiresAt,
		&i.CreatedAt,
	)
	return i, err
}

const createReferral = `-- name: CreateReferral :one
INSERT INTO referrals (referrer_id, referred_id, code)
VALUES ($1, $2, $3)
RETURNING id, referrer_id, referred_id, code, created_at
`

type CreateReferralParams struct {
	ReferrerID uuid.UUID
	ReferredID uuid.UUID
	Code       string
}

func (q *Queries) CreateReferral(ctx context.Context, arg CreateReferralParams) (Referral, error) {
	var i Referral
	err := q.db.QueryRowContext(ctx, createReferral, arg.ReferrerID, arg.ReferredID, arg.Code).Scan(
		&i.ID,
		&i.ReferrerID,
		&i.ReferredID,
		&i.Code,
		&i.CreatedAt,
	)
	return i, err
}
