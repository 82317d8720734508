package repository

import "context"

// BillingWriter is the subset of Queries a billing event may touch.
type BillingWriter interface {
	CreateListPurchase(ctx context.Context, arg CreateListPurchaseParams) (int64, error)
	UpdateUserSubscription(ctx context.Context, arg UpdateUserSubscriptionParams) error
}

// ProcessBillingEvent records the event and runs apply in the same
// transaction. A redelivered event is skipped and reports applied=false.
// If apply fails the event row is rolled back so the provider's retry is
// processed again.
func (s *Store) ProcessBillingEvent(ctx context.Context, arg InsertBillingEventParams, apply func(BillingWriter) error) (bool, error) {
	applied := false
	err := s.ExecTx(ctx, func(q *Queries) error {
		n, err := q.InsertBillingEvent(ctx, arg)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		applied = true
		return apply(q)
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
