// Package handler contains the HTTP handlers of the GetDoa JSON API.
//
// This file implements referral code handlers.
//
// Routes handled:
//   - GET  /api/referrals/code     -> Code
//   - POST /api/referrals/redeem   -> Redeem
//   - GET  /api/referrals/validate -> Validate
package handler

import (
	"log/slog"
	"net/http"

	"github.com/getdoa/getdoa/internal/auth"
	"github.com/getdoa/getdoa/internal/service"
)

// ReferralHandler handles referral requests.
type ReferralHandler struct {
	referrals service.ReferralService
	logger    *slog.Logger
}

// NewReferralHandler creates a new ReferralHandler.
func NewReferralHandler(referrals service.ReferralService, logger *slog.Logger) *ReferralHandler {
	return &ReferralHandler{referrals: referrals, logger: logger}
}

// RegisterRoutes registers referral routes. limit wraps the endpoints that
// accept guessed codes.
func (h *ReferralHandler) RegisterRoutes(mux *http.ServeMux, requireUser, limit func(http.Handler) http.Handler) {
	mux.Handle("GET /api/referrals/code", requireUser(http.HandlerFunc(h.Code)))
	mux.Handle("POST /api/referrals/redeem", limit(requireUser(http.HandlerFunc(h.Redeem))))
	mux.Handle("GET /api/referrals/validate", limit(http.HandlerFunc(h.Validate)))
}

// Code returns the user's referral code, issuing one on first request, along
// with their referral progress.
func (h *ReferralHandler) Code(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	summary, err := h.referrals.Summary(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type redeemRequest struct {
	Code string `json:"code"`
}

// Redeem attributes the signed-in user to a referrer.
func (h *ReferralHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	const op = "handler.referral.redeem"

	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req redeemRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	ref, err := h.referrals.Redeem(r.Context(), user.ID, req.Code)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

type validateResponse struct {
	Valid bool   `json:"valid"`
	Code  string `json:"code"`
}

// Validate checks ?code= without redeeming it.
func (h *ReferralHandler) Validate(w http.ResponseWriter, r *http.Request) {
	code, err := h.referrals.Validate(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, Code: code.Code})
}
