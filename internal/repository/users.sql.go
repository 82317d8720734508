package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const userColumns = `id, email, name, stripe_customer_id, subscription_status, subscription_plan, subscription_id, referred_by, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.StripeCustomerID,
		&i.SubscriptionStatus,
		&i.SubscriptionPlan,
		&i.SubscriptionID,
		&i.ReferredBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserBySessionTokenHash = `-- name: GetUserBySessionTokenHash :one
SELECT u.id, u.email, u.name, u.stripe_customer_id, u.subscription_status, u.subscription_plan,
       u.subscription_id, u.referred_by, u.created_at, u.updated_at
FROM sessions s
JOIN users u ON u.id = s.user_id
WHERE s.token_hash = $1 AND s.expires_at > now()
`

func (q *Queries) GetUserBySessionTokenHash(ctx context.Context, tokenHash string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserBySessionTokenHash, tokenHash))
}

const lockUser = `-- name: LockUser :exec
SELECT id FROM users WHERE id = $1 FOR UPDATE
`

// LockUser takes a row lock on the user for the rest of the transaction.
func (q *Queries) LockUser(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	return q.db.QueryRowContext(ctx, lockUser, id).Scan(&locked)
}

const setUserStripeCustomerID = `-- name: SetUserStripeCustomerID :exec
UPDATE users SET stripe_customer_id = $2, updated_at = now() WHERE id = $1
`

func (q *Queries) SetUserStripeCustomerID(ctx context.Context, id uuid.UUID, stripeCustomerID string) error {
	_, err := q.db.ExecContext(ctx, setUserStripeCustomerID, id, stripeCustomerID)
	return err
}

const updateUserSubscription = `-- name: UpdateUserSubscription :exec
UPDATE users
SET subscription_status = $2, subscription_plan = $3, subscription_id = $4, updated_at = now()
WHERE stripe_customer_id = $1
`

type UpdateUserSubscriptionParams struct {
	StripeCustomerID   string
	SubscriptionStatus string
	SubscriptionPlan   sql.NullString
	SubscriptionID     sql.NullString
}

func (q *Queries) UpdateUserSubscription(ctx context.Context, arg UpdateUserSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx, updateUserSubscription,
		arg.StripeCustomerID,
		arg.SubscriptionStatus,
		arg.SubscriptionPlan,
		arg.SubscriptionID,
	)
	return err
}

const setUserReferredBy = `-- name: SetUserReferredBy :execrows
UPDATE users SET referred_by = $2, updated_at = now() WHERE id = $1 AND referred_by IS NULL
`

func (q *Queries) SetUserReferredBy(ctx context.Context, id, referrerID uuid.UUID) (int64, error) {
	result, err := q.db.ExecContext(ctx, setUserReferredBy, id, referrerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
