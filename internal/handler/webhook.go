// Package handler contains the HTTP handlers of the GetDoa JSON API.
//
// This file implements the Stripe webhook endpoint.
//
// Routes handled:
//   - POST /webhooks/stripe -> HandleStripeWebhook
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/getdoa/getdoa/internal/billing"
	"github.com/stripe/stripe-go/v79"
)

// maxWebhookBody is the largest webhook payload accepted.
const maxWebhookBody = 65536

// EventProcessor applies verified Stripe events. *billing.EventProcessor
// satisfies it.
type EventProcessor interface {
	Process(ctx context.Context, event stripe.Event) error
}

// WebhookHandler handles Stripe webhook events.
type WebhookHandler struct {
	billing   billing.Service
	processor EventProcessor
	logger    *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(billingService billing.Service, processor EventProcessor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing:   billingService,
		processor: processor,
		logger:    logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These routes are PUBLIC; authenticity comes from the signature.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook verifies and applies one Stripe event. Stripe retries
// anything that is not 2xx, so processing failures return 500.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := h.billing.VerifyWebhookSignature(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.processor.Process(r.Context(), event); err != nil {
		h.logger.Error("failed to process webhook event", "error", err, "type", event.Type, "id", event.ID)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
