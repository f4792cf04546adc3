package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/skyquery/skyquery/internal/domain"
)

// PricesHandler serves the aggregated price surfaces: the lowest-ask
// snapshot, under-ask candidates, windowed averages, and pet prices.
type PricesHandler struct {
	snapshot   domain.SnapshotCache
	candidates domain.CandidateCache
	averages   domain.AverageStore
	pets       domain.PetStore
	window     time.Duration
	logger     *slog.Logger
}

// NewPricesHandler creates a PricesHandler. window is the default averaging
// span for the average endpoints.
func NewPricesHandler(
	snapshot domain.SnapshotCache,
	candidates domain.CandidateCache,
	averages domain.AverageStore,
	pets domain.PetStore,
	window time.Duration,
	logger *slog.Logger,
) *PricesHandler {
	return &PricesHandler{
		snapshot:   snapshot,
		candidates: candidates,
		averages:   averages,
		pets:       pets,
		window:     window,
		logger:     logger.With(slog.String("handler", "prices")),
	}
}

// ListLowestAsks returns the whole lowest-ask snapshot.
// GET /api/lowestbin
func (h *PricesHandler) ListLowestAsks(w http.ResponseWriter, r *http.Request) {
	prices, err := h.snapshot.Load(r.Context())
	if err != nil {
		h.logger.Error("load snapshot", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// GetLowestAsk returns one key's lowest recorded ask.
// GET /api/lowestbin/{key}
func (h *PricesHandler) GetLowestAsk(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	price, err := h.snapshot.Get(r.Context(), key)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no recorded ask for "+key)
		return
	}
	if err != nil {
		h.logger.Error("get snapshot key", slog.String("key", key), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{key: price})
}

// ListCandidates returns the most recent cycle's under-ask candidates.
// GET /api/underbin
func (h *PricesHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.candidates.List(r.Context())
	if err != nil {
		h.logger.Error("list candidates", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load candidates")
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

// GetAverages returns per-key mean prices over the averaging window. The
// kind path segment selects the auction or bin table; an optional "hours"
// query parameter overrides the window.
// GET /api/average/{kind}
func (h *PricesHandler) GetAverages(w http.ResponseWriter, r *http.Request) {
	var kind domain.AverageKind
	switch r.PathValue("kind") {
	case "auction":
		kind = domain.AverageAuction
	case "bin":
		kind = domain.AverageBIN
	default:
		writeError(w, http.StatusBadRequest, "kind must be auction or bin")
		return
	}

	window := h.window
	if hours := queryInt(r, "hours", 0); hours > 0 {
		window = time.Duration(hours) * time.Hour
	}

	rows, err := h.averages.Averages(r.Context(), kind, time.Now().Add(-window))
	if err != nil {
		h.logger.Error("query averages", slog.String("kind", string(kind)), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load averages")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// ListPets returns every pet average price.
// GET /api/pets
func (h *PricesHandler) ListPets(w http.ResponseWriter, r *http.Request) {
	rows, err := h.pets.List(r.Context())
	if err != nil {
		h.logger.Error("list pets", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load pet prices")
		return
	}
	if rows == nil {
		rows = []domain.PetRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetPet returns one pet's average price by canonical name.
// GET /api/pets/{name}
func (h *PricesHandler) GetPet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	row, err := h.pets.Get(r.Context(), name)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no recorded price for "+name)
		return
	}
	if err != nil {
		h.logger.Error("get pet", slog.String("name", name), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load pet price")
		return
	}
	writeJSON(w, http.StatusOK, row)
}
