// Package handler contains the HTTP handlers of the GetDoa JSON API.
//
// This file implements prayer list handlers.
//
// Routes handled:
//   - GET  /api/lists/public     -> PublicFeed
//   - POST /api/lists            -> Create
//   - GET  /api/lists/{id}       -> Get
//   - POST /api/lists/{id}/duas  -> AddDua
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/getdoa/getdoa/internal/auth"
	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/service"
)

// ListHandler handles prayer list requests.
type ListHandler struct {
	lists  service.ListService
	logger *slog.Logger
}

// NewListHandler creates a new ListHandler.
func NewListHandler(lists service.ListService, logger *slog.Logger) *ListHandler {
	return &ListHandler{lists: lists, logger: logger}
}

// RegisterRoutes registers list routes on the provided mux. Reading a list
// does not require a session; private lists still resolve only for owners.
func (h *ListHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/lists/public", h.PublicFeed)
	mux.HandleFunc("GET /api/lists/{id}", h.Get)
	mux.Handle("POST /api/lists", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("POST /api/lists/{id}/duas", requireUser(http.HandlerFunc(h.AddDua)))
}

type createListRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Visibility  domain.Visibility `json:"visibility"`
}

// Create makes a new list for the signed-in user.
func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handler.list.create"

	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req createListRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	list, err := h.lists.Create(r.Context(), user, domain.CreateListParams{
		OwnerID:     user.ID,
		Title:       req.Title,
		Description: req.Description,
		Visibility:  req.Visibility,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// Get returns one list.
func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "handler.list.get", "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	list, err := h.lists.Get(r.Context(), auth.GetUserFromRequest(r), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type addDuaRequest struct {
	DuaID string `json:"duaId"`
}

// AddDua appends a dua to one of the user's lists.
func (h *ListHandler) AddDua(w http.ResponseWriter, r *http.Request) {
	const op = "handler.list.add_dua"

	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	id, err := pathUUID(r, op, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req addDuaRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	req.DuaID = strings.TrimSpace(req.DuaID)
	if req.DuaID == "" {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "duaId", "Dua is required"))
		return
	}

	list, err := h.lists.AddDua(r.Context(), user, id, req.DuaID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// PublicFeed returns a page of public lists matching ?q=.
func (h *ListHandler) PublicFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := h.lists.PublicFeed(r.Context(), domain.FeedParams{
		Query:   r.URL.Query().Get("q"),
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "per_page", domain.DefaultFeedPerPage),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}
