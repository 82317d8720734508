// Package handler contains the HTTP handlers of the GetDoa JSON API.
//
// This file implements Stripe checkout for subscriptions and list packs.
//
// Routes handled:
//   - POST /api/billing/checkout -> CreateCheckout
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/getdoa/getdoa/internal/auth"
	"github.com/getdoa/getdoa/internal/billing"
	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/service"
)

// BillingHandler handles checkout requests.
type BillingHandler struct {
	billing     billing.Service
	userService service.UserService
	baseURL     string
	logger      *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
// billingService may be nil when Stripe is not configured (development mode).
func NewBillingHandler(billingService billing.Service, userService service.UserService, baseURL string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing:     billingService,
		userService: userService,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// RegisterRoutes registers billing routes on the provided mux.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/billing/checkout", requireUser(http.HandlerFunc(h.CreateCheckout)))
}

type checkoutRequest struct {
	Kind billing.CheckoutKind    `json:"kind"`
	Plan domain.SubscriptionPlan `json:"plan"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

// CreateCheckout creates a Stripe Checkout session and returns its URL.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "handler.billing.checkout"

	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.ENOTIMPL, op, "Billing is not configured"))
		return
	}

	var req checkoutRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	switch req.Kind {
	case billing.CheckoutListPack:
	case billing.CheckoutSubscription:
		if user.IsSubscribed() {
			ErrorResponse(w, r, h.logger, domain.Conflict(op, "You already have an active subscription"))
			return
		}
	default:
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "kind", "Kind must be subscription or list_pack"))
		return
	}

	// Create Stripe customer on first checkout
	customerID := user.StripeCustomerID
	if customerID == "" {
		var err error
		customerID, err = h.billing.CreateCustomer(user.Email, user.Name)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to create billing customer"))
			return
		}
		if err := h.userService.UpdateStripeCustomer(r.Context(), user.ID, customerID); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}

	url, err := h.billing.CreateCheckoutSession(billing.CheckoutRequest{
		Kind:       req.Kind,
		Plan:       req.Plan,
		CustomerID: customerID,
		UserID:     user.ID,
		SuccessURL: h.baseURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  h.baseURL + "/billing",
	})
	if errors.Is(err, billing.ErrPriceNotConfigured) {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "plan", "This product is not available"))
		return
	}
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to create checkout session"))
		return
	}

	h.logger.Info("checkout session created", "user_id", user.ID, "kind", req.Kind, "plan", req.Plan)
	writeJSON(w, http.StatusOK, checkoutResponse{URL: url})
}
