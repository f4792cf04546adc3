package handler

import (
	"log/slog"
	"net/http"

	"github.com/skyquery/skyquery/internal/domain"
)

// QueryHandler serves filtered searches over the full-record rows.
type QueryHandler struct {
	store  domain.AuctionStore
	logger *slog.Logger
}

// NewQueryHandler creates a QueryHandler over the given store.
func NewQueryHandler(store domain.AuctionStore, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{
		store:  store,
		logger: logger.With(slog.String("handler", "query")),
	}
}

// Search returns live listings matching the query parameters: item_name
// (substring), item_id, tier, enchant, auctioneer, bin, limit.
// GET /api/query
func (h *QueryHandler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	q := domain.AuctionQuery{
		ItemName:   params.Get("item_name"),
		ItemID:     params.Get("item_id"),
		Tier:       params.Get("tier"),
		Enchant:    params.Get("enchant"),
		Auctioneer: params.Get("auctioneer"),
		Limit:      queryInt(r, "limit", 0),
	}
	switch params.Get("bin") {
	case "true":
		v := true
		q.BIN = &v
	case "false":
		v := false
		q.BIN = &v
	case "":
	default:
		writeError(w, http.StatusBadRequest, "bin must be true or false")
		return
	}

	records, err := h.store.Search(r.Context(), q)
	if err != nil {
		h.logger.Error("search", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if records == nil {
		records = []domain.AuctionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
