package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const getImageGeneration = `-- name: GetImageGeneration :one
SELECT user_id, generations_today, last_generated_at, total_generations
FROM image_generations WHERE user_id = $1
`

func (q *Queries) GetImageGeneration(ctx context.Context, userID uuid.UUID) (ImageGeneration, error) {
	var i ImageGeneration
	err := q.db.QueryRowContext(ctx, getImageGeneration, userID).Scan(
		&i.UserID,
		&i.GenerationsToday,
		&i.LastGeneratedAt,
		&i.TotalGenerations,
	)
	return i, err
}

const reserveImageGeneration = `-- name: ReserveImageGeneration :one
INSERT INTO image_generations AS g (user_id, generations_today, last_generated_at, total_generations)
VALUES ($1, 1, $3, 1)
ON CONFLICT (user_id) DO UPDATE
SET generations_today = CASE
        WHEN g.last_generated_at IS NULL OR g.last_generated_at < $2 THEN 1
        ELSE g.generations_today + 1
    END,
    last_generated_at = $3,
    total_generations = g.total_generations + 1
WHERE g.last_generated_at IS NULL
   OR g.last_generated_at < $2
   OR g.generations_today < $4
RETURNING user_id, generations_today, last_generated_at, total_generations
`

type ReserveImageGenerationParams struct {
	UserID      uuid.UUID
	WindowStart time.Time
	GeneratedAt time.Time
	DailyLimit  int32
}

// ReserveImageGeneration increments the counters in one statement when the
// user is under DailyLimit. The daily counter restarts at 1 when the previous
// generation is before WindowStart. It returns sql.ErrNoRows when the limit
// is already reached. DailyLimit must be positive: a first-ever generation is
// always inserted.
func (q *Queries) ReserveImageGeneration(ctx context.Context, arg ReserveImageGenerationParams) (ImageGeneration, error) {
	var i ImageGeneration
	err := q.db.QueryRowContext(ctx, reserveImageGeneration,
		arg.UserID,
		arg.WindowStart,
		arg.GeneratedAt,
		arg.DailyLimit,
	).Scan(
		&i.UserID,
		&i.GenerationsToday,
		&i.LastGeneratedAt,
		&i.TotalGenerations,
	)
	return i, err
}

const releaseImageGeneration = `-- name: ReleaseImageGeneration :exec
UPDATE image_generations
SET generations_today = GREATEST(generations_today - 1, 0),
    total_generations = GREATEST(total_generations - 1, 0)
WHERE user_id = $1 AND last_generated_at >= $2
`

// ReleaseImageGeneration gives back a reservation made in the current window
// after the generation itself failed.
func (q *Queries) ReleaseImageGeneration(ctx context.Context, userID uuid.UUID, windowStart time.Time) error {
	_, err := q.db.ExecContext(ctx, releaseImageGeneration, userID, windowStart)
	return err
}

const createListPurchase = `-- name: CreateListPurchase :execrows
INSERT INTO list_purchases (user_id, lists, stripe_session_id)
VALUES ($1, $2, $3)
ON CONFLICT (stripe_session_id) DO NOTHING
`

type CreateListPurchaseParams struct {
	UserID          uuid.UUID
	Lists           int32
	StripeSessionID string
}

// CreateListPurchase records a purchase once per checkout session. It
// returns 0 rows when the session was already recorded.
func (q *Queries) CreateListPurchase(ctx context.Context, arg CreateListPurchaseParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, createListPurchase, arg.UserID, arg.Lists, arg.StripeSessionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const insertBillingEvent = `-- name: InsertBillingEvent :execrows
INSERT INTO billing_events (id, event_type, payload)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO NOTHING
`

type InsertBillingEventParams struct {
	ID        string
	EventType string
	Payload   pqtype.NullRawMessage
}

// InsertBillingEvent stores a webhook event. It returns 0 rows for an event
// that was already processed.
func (q *Queries) InsertBillingEvent(ctx context.Context, arg InsertBillingEventParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertBillingEvent, arg.ID, arg.EventType, arg.Payload)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
