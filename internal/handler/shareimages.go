// Package handler contains the HTTP handlers of the GetDoa JSON API.
//
// This file implements share image generation.
//
// Routes handled:
//   - POST /api/share-images -> Generate
package handler

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/getdoa/getdoa/internal/auth"
	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/service"
)

// maxShareImageBody allows room for a base64 background photo.
const maxShareImageBody = 6 << 20

// ShareImageHandler handles share image requests.
type ShareImageHandler struct {
	images service.ShareImageService
	logger *slog.Logger
}

// NewShareImageHandler creates a new ShareImageHandler.
func NewShareImageHandler(images service.ShareImageService, logger *slog.Logger) *ShareImageHandler {
	return &ShareImageHandler{images: images, logger: logger}
}

// RegisterRoutes registers share image routes on the provided mux.
func (h *ShareImageHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/share-images", requireUser(http.HandlerFunc(h.Generate)))
}

type shareImageRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Footer string `json:"footer"`
	// Background is an optional base64-encoded JPEG or PNG.
	Background string `json:"background"`
}

// Generate renders and stores a share card, consuming one unit of the
// user's daily image allowance.
func (h *ShareImageHandler) Generate(w http.ResponseWriter, r *http.Request) {
	const op = "handler.share_image.generate"

	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req shareImageRequest
	if err := decodeJSONLimit(w, r, op, &req, maxShareImageBody); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params := service.ShareCardParams{
		Title:  req.Title,
		Body:   req.Body,
		Footer: req.Footer,
	}
	if req.Background != "" {
		bg, err := base64.StdEncoding.DecodeString(req.Background)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "background", "Background must be base64 encoded"))
			return
		}
		params.Background = bg
	}

	image, err := h.images.Generate(r.Context(), user.ID, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, image)
}
