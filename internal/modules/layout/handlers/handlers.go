// Package handlers provides HTTP handlers for ceiling layout optimization.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/coffersys/coffer/internal/modules/layout"
	"github.com/coffersys/coffer/internal/modules/optimization"
)

// Handler handles layout HTTP requests
type Handler struct {
	service *layout.Service
	log     zerolog.Logger
}

// NewHandler creates a new layout handler
func NewHandler(service *layout.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "layout").Logger(),
	}
}

// HandleOptimize handles POST /api/layout/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req layout.LayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	run, err := h.service.Optimize(req)
	if err != nil {
		h.respondError(w, err, "Optimization failed")
		return
	}

	response := map[string]interface{}{
		"data": run.Result,
		"metadata": map[string]interface{}{
			"run_id":    run.ID,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleOptimizeBatch handles POST /api/layout/optimize/batch. The body is a
// JSON array of layout requests; the response preserves slot order, with
// failed slots carrying their error instead of a result.
func (h *Handler) HandleOptimizeBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []layout.LayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(reqs) == 0 {
		http.Error(w, "Batch must contain at least one request", http.StatusBadRequest)
		return
	}

	results, err := h.service.OptimizeBatch(reqs)
	if err != nil {
		h.respondError(w, err, "Batch optimization failed")
		return
	}

	items := make([]map[string]interface{}, len(results))
	succeeded := 0
	for i, res := range results {
		if res.Err != nil {
			items[i] = map[string]interface{}{"error": res.Err.Error()}
			continue
		}
		items[i] = map[string]interface{}{
			"run_id": res.Run.ID,
			"result": res.Run.Result,
		}
		succeeded++
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"results":   items,
			"succeeded": succeeded,
			"failed":    len(results) - succeeded,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleListRuns handles GET /api/layout/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := h.service.RecentRuns(limit)
	if err != nil {
		h.respondError(w, err, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []*layout.Run{}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"runs":  runs,
			"count": len(runs),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetRun handles GET /api/layout/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.service.GetRun(id)
	if err != nil {
		h.respondError(w, err, "Failed to load run")
		return
	}

	response := map[string]interface{}{
		"data": run,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// respondError maps domain errors onto HTTP status codes
func (h *Handler) respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, layout.ErrInvalidDimensions),
		errors.Is(err, optimization.ErrInvalidBounds),
		errors.Is(err, optimization.ErrInvalidIterations):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, layout.ErrRunNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.log.Error().Err(err).Msg(fallback)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
