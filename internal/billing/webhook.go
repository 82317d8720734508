package billing

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/metrics"
	"github.com/getdoa/getdoa/internal/repository"
	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
	"github.com/stripe/stripe-go/v79"
)

// EventStore persists webhook events. *repository.Store satisfies it.
type EventStore interface {
	ProcessBillingEvent(ctx context.Context, arg repository.InsertBillingEventParams, apply func(repository.BillingWriter) error) (bool, error)
}

// EventProcessor applies verified Stripe events to the account tables.
type EventProcessor struct {
	store        EventStore
	prices       PriceConfig
	listPackSize int
	logger       *slog.Logger
}

func NewEventProcessor(store EventStore, prices PriceConfig, listPackSize int, logger *slog.Logger) *EventProcessor {
	return &EventProcessor{
		store:        store,
		prices:       prices,
		listPackSize: listPackSize,
		logger:       logger,
	}
}

// Process applies event exactly once. Unhandled event types are recorded and
// ignored. A returned error means the event should be retried.
func (p *EventProcessor) Process(ctx context.Context, event stripe.Event) error {
	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	applied, err := p.store.ProcessBillingEvent(ctx, repository.InsertBillingEventParams{
		ID:        event.ID,
		EventType: string(event.Type),
		Payload:   pqtype.NullRawMessage{RawMessage: raw, Valid: len(raw) > 0},
	}, func(w repository.BillingWriter) error {
		switch event.Type {
		case "checkout.session.completed":
			return p.checkoutCompleted(ctx, w, raw)
		case "customer.subscription.created", "customer.subscription.updated":
			return p.subscriptionChanged(ctx, w, raw, false)
		case "customer.subscription.deleted":
			return p.subscriptionChanged(ctx, w, raw, true)
		default:
			p.logger.Debug("unhandled webhook event type", "type", event.Type)
			return nil
		}
	})
	if err != nil {
		metrics.BillingEvents.WithLabelValues("error").Inc()
		return err
	}
	if !applied {
		metrics.BillingEvents.WithLabelValues("duplicate").Inc()
		p.logger.Info("duplicate webhook event skipped", "id", event.ID, "type", event.Type)
		return nil
	}

	metrics.BillingEvents.WithLabelValues(string(event.Type)).Inc()
	return nil
}

func (p *EventProcessor) checkoutCompleted(ctx context.Context, w repository.BillingWriter, raw json.RawMessage) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("parse checkout session: %w", err)
	}

	if CheckoutKind(session.Metadata[metadataKind]) != CheckoutListPack {
		// Subscription checkouts are applied by customer.subscription.* events.
		return nil
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		p.logger.Info("list pack checkout not paid yet", "session_id", session.ID, "status", session.PaymentStatus)
		return nil
	}

	userID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		// Retrying cannot fix a bad reference; record and move on.
		p.logger.Error("list pack checkout has invalid client reference",
			"session_id", session.ID,
			"client_reference_id", session.ClientReferenceID,
		)
		return nil
	}

	n, err := w.CreateListPurchase(ctx, repository.CreateListPurchaseParams{
		UserID:          userID,
		Lists:           int32(p.listPackSize),
		StripeSessionID: session.ID,
	})
	if err != nil {
		return fmt.Errorf("record list purchase: %w", err)
	}
	if n > 0 {
		p.logger.Info("list pack purchased", "user_id", userID, "lists", p.listPackSize, "session_id", session.ID)
	}
	return nil
}

func (p *EventProcessor) subscriptionChanged(ctx context.Context, w repository.BillingWriter, raw json.RawMessage, deleted bool) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("parse subscription: %w", err)
	}
	if sub.Customer == nil {
		p.logger.Warn("subscription event missing customer", "subscription_id", sub.ID)
		return nil
	}

	arg := repository.UpdateUserSubscriptionParams{
		StripeCustomerID:   sub.Customer.ID,
		SubscriptionStatus: string(sub.Status),
		SubscriptionID:     sql.NullString{String: sub.ID, Valid: sub.ID != ""},
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		plan := p.prices.PlanForPriceID(sub.Items.Data[0].Price.ID)
		arg.SubscriptionPlan = sql.NullString{String: string(plan), Valid: plan != ""}
	}
	if deleted {
		arg.SubscriptionStatus = string(domain.SubscriptionStatusCanceled)
		arg.SubscriptionPlan = sql.NullString{}
		arg.SubscriptionID = sql.NullString{}
	}

	if err := w.UpdateUserSubscription(ctx, arg); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	p.logger.Info("subscription event processed",
		"customer_id", sub.Customer.ID,
		"status", arg.SubscriptionStatus,
		"plan", arg.SubscriptionPlan.String,
	)
	return nil
}
