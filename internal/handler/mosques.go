package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getdoa/getdoa/internal/domain"
	"github.com/getdoa/getdoa/internal/mosque"
)

// MosqueSearcher looks up donation listings. *mosque.Client satisfies it.
type MosqueSearcher interface {
	Search(ctx context.Context, query string) ([]mosque.Mosque, error)
}

// maxMosqueQuery bounds the search term forwarded upstream.
const maxMosqueQuery = 100

// MosqueHandler proxies the mosque donation directory.
type MosqueHandler struct {
	mosques MosqueSearcher
	logger  *slog.Logger
}

// NewMosqueHandler creates a new MosqueHandler.
func NewMosqueHandler(mosques MosqueSearcher, logger *slog.Logger) *MosqueHandler {
	return &MosqueHandler{mosques: mosques, logger: logger}
}

// RegisterRoutes registers GET /api/mosques.
func (h *MosqueHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/mosques", h.Search)
}

type mosqueResponse struct {
	Mosques []mosque.Mosque `json:"mosques"`
}

// Search returns listings matching ?q=.
func (h *MosqueHandler) Search(w http.ResponseWriter, r *http.Request) {
	const op = "handler.mosque.search"

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) > maxMosqueQuery {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "q", "Search term is too long"))
		return
	}

	results, err := h.mosques.Search(r.Context(), q)
	if err != nil {
		h.logger.Warn("mosque directory unavailable", "error", err)
		writeUpstreamError(w)
		return
	}
	if results == nil {
		results = []mosque.Mosque{}
	}
	writeJSON(w, http.StatusOK, mosqueResponse{Mosques: results})
}

func writeUpstreamError(w http.ResponseWriter) {
	var body JSONError
	body.Error.Code = "upstream"
	body.Error.Message = "The mosque directory is unavailable. Please try again later."
	writeJSON(w, http.StatusBadGateway, body)
}
