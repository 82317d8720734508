// Package billing integrates Stripe for subscriptions and one-off list packs.
package billing

import (
	"errors"
	"fmt"

	"github.com/getdoa/getdoa/internal/domain"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"
)

// CheckoutKind selects what a checkout session sells.
type CheckoutKind string

const (
	CheckoutSubscription CheckoutKind = "subscription"
	CheckoutListPack     CheckoutKind = "list_pack"
)

// metadataKind is the checkout session metadata key holding the CheckoutKind.
const metadataKind = "kind"

// ErrPriceNotConfigured is returned when no Stripe price exists for the
// requested product.
var ErrPriceNotConfigured = errors.New("billing: price not configured")

// Service defines the Stripe operations used by the API.
type Service interface {
	// CreateCustomer creates a new Stripe customer for the given email.
	CreateCustomer(email, name string) (string, error)

	// CreateCheckoutSession returns the hosted checkout URL.
	CreateCheckoutSession(req CheckoutRequest) (string, error)

	// VerifyWebhookSignature verifies the Stripe webhook signature and returns the event.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)
}

// CheckoutRequest describes one checkout session.
type CheckoutRequest struct {
	Kind       CheckoutKind
	Plan       domain.SubscriptionPlan // subscriptions only
	CustomerID string
	UserID     uuid.UUID
	SuccessURL string
	CancelURL  string
}

// PriceConfig holds the Stripe price IDs for each product.
type PriceConfig struct {
	MonthlyPriceID  string
	YearlyPriceID   string
	ListPackPriceID string
}

// PriceFor returns the price ID for a checkout request.
func (p PriceConfig) PriceFor(kind CheckoutKind, plan domain.SubscriptionPlan) (string, error) {
	var id string
	switch kind {
	case CheckoutListPack:
		id = p.ListPackPriceID
	case CheckoutSubscription:
		switch plan {
		case domain.SubscriptionPlanMonthly:
			id = p.MonthlyPriceID
		case domain.SubscriptionPlanYearly:
			id = p.YearlyPriceID
		}
	}
	if id == "" {
		return "", fmt.Errorf("%w: %s %s", ErrPriceNotConfigured, kind, plan)
	}
	return id, nil
}

// PlanForPriceID maps a subscription price back to its plan. Unknown prices
// return "".
func (p PriceConfig) PlanForPriceID(priceID string) domain.SubscriptionPlan {
	switch {
	case priceID == "":
		return ""
	case priceID == p.MonthlyPriceID:
		return domain.SubscriptionPlanMonthly
	case priceID == p.YearlyPriceID:
		return domain.SubscriptionPlanYearly
	}
	return ""
}

type stripeService struct {
	webhookSecret string
	prices        PriceConfig
}

// NewStripeService creates a new Stripe billing service.
//
// The secretKey is used to authenticate Stripe API calls.
// The webhookSecret is used to verify incoming webhook signatures.
func NewStripeService(secretKey, webhookSecret string, prices PriceConfig) Service {
	stripe.Key = secretKey

	return &stripeService{
		webhookSecret: webhookSecret,
		prices:        prices,
	}
}

func (s *stripeService) CreateCustomer(email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create customer: %w", err)
	}
	return c.ID, nil
}

func (s *stripeService) CreateCheckoutSession(req CheckoutRequest) (string, error) {
	priceID, err := s.prices.PriceFor(req.Kind, req.Plan)
	if err != nil {
		return "", err
	}

	mode := stripe.CheckoutSessionModeSubscription
	if req.Kind == CheckoutListPack {
		mode = stripe.CheckoutSessionModePayment
	}

	params := &stripe.CheckoutSessionParams{
		Customer:          stripe.String(req.CustomerID),
		ClientReferenceID: stripe.String(req.UserID.String()),
		Mode:              stripe.String(string(mode)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.AddMetadata(metadataKind, string(req.Kind))

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}
