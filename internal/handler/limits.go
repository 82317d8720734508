// Package handler contains the HTTP handlers of the GetDoa JSON API.
//
// This file exposes the computed list and share-image allowances.
//
// Routes handled:
//   - GET /api/limits/lists  -> ListLimit
//   - GET /api/limits/images -> ImageLimit
package handler

import (
	"log/slog"
	"net/http"

	"github.com/getdoa/getdoa/internal/auth"
	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/service"
)

// LimitsHandler serves quota information for the signed-in user.
type LimitsHandler struct {
	quota  service.QuotaService
	logger *slog.Logger
}

// NewLimitsHandler creates a new LimitsHandler.
func NewLimitsHandler(quota service.QuotaService, logger *slog.Logger) *LimitsHandler {
	return &LimitsHandler{quota: quota, logger: logger}
}

// RegisterRoutes registers limit routes on the provided mux.
func (h *LimitsHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/limits/lists", requireUser(http.HandlerFunc(h.ListLimit)))
	mux.Handle("GET /api/limits/images", requireUser(http.HandlerFunc(h.ImageLimit)))
}

type listLimitResponse struct {
	domain.ListLimitInfo
	ProgressPercent int `json:"progressPercent"`
}

// ListLimit returns the user's prayer-list allowance.
func (h *LimitsHandler) ListLimit(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	info, err := h.quota.ListLimit(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listLimitResponse{
		ListLimitInfo:   info,
		ProgressPercent: info.ProgressPercent(),
	})
}

// ImageLimit returns today's share-image allowance.
func (h *LimitsHandler) ImageLimit(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	info, err := h.quota.ImageLimit(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
