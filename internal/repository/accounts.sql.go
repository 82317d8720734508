package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// AccountCounts are the raw counters behind a user's list allowance.
type AccountCounts struct {
	Lists          int64
	Referrals      int64
	PurchasedLists int64
}

const getAccountCounts = `-- name: GetAccountCounts :one
SELECT
    (SELECT count(*) FROM prayer_lists WHERE owner_id = $1)::bigint,
    (SELECT count(*) FROM referrals WHERE referrer_id = $1)::bigint,
    (SELECT COALESCE(sum(lists), 0) FROM list_purchases WHERE user_id = $1)::bigint
`

func (q *Queries) GetAccountCounts(ctx context.Context, userID uuid.UUID) (AccountCounts, error) {
	var i AccountCounts
	err := q.db.QueryRowContext(ctx, getAccountCounts, userID).Scan(
		&i.Lists,
		&i.Referrals,
		&i.PurchasedLists,
	)
	return i, err
}

// CreateListGuarded creates a list while holding a lock on the owner row.
// guard sees counts read under that lock and aborts the insert by returning
// an error, so concurrent creates for one user cannot overshoot the limit.
func (s *Store) CreateListGuarded(ctx context.Context, arg CreateListParams, guard func(AccountCounts) error) (PrayerList, error) {
	var created PrayerList
	err := s.ExecTx(ctx, func(q *Queries) error {
		if err := q.LockUser(ctx, arg.OwnerID); err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		counts, err := q.GetAccountCounts(ctx, arg.OwnerID)
		if err != nil {
			return fmt.Errorf("account counts: %w", err)
		}
		if err := guard(counts); err != nil {
			return err
		}

		created, err = q.CreateList(ctx, arg)
		return err
	})
	return created, err
}

// ErrAlreadyReferred is returned when the referred user already redeemed a
// code.
var ErrAlreadyReferred = errors.New("user was already referred")

// RedeemReferral attributes referredID to referrerID exactly once.
func (s *Store) RedeemReferral(ctx context.Context, arg CreateReferralParams) (Referral, error) {
	var referral Referral
	err := s.ExecTx(ctx, func(q *Queries) error {
		n, err := q.SetUserReferredBy(ctx, arg.ReferredID, arg.ReferrerID)
		if err != nil {
			return fmt.Errorf("set referred by: %w", err)
		}
		if n == 0 {
			return ErrAlreadyReferred
		}

		referral, err = q.CreateReferral(ctx, arg)
		if IsUniqueViolation(err) {
			return ErrAlreadyReferred
		}
		return err
	})
	return referral, err
}
