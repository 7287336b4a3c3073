package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/quietlog/loom/internal/engine"
	"github.com/quietlog/loom/internal/storage"
	"github.com/quietlog/loom/pkg/types"
)

// HealthChecker reports whether the inference backend is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// APIHandlers contains HTTP handlers for the REST API.
type APIHandlers struct {
	engine *engine.Engine
	ollama HealthChecker
}

// NewAPIHandlers creates a new APIHandlers instance.
func NewAPIHandlers(eng *engine.Engine, ollama HealthChecker) *APIHandlers {
	return &APIHandlers{
		engine: eng,
		ollama: ollama,
	}
}

// ListEntries handles GET /api/entries - list entries with pagination and
// filtering by status and creation window.
func (h *APIHandlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := storage.ListOptions{
		Page:      parseInt(q.Get("page"), 1),
		Limit:     parseInt(q.Get("limit"), 20),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Status:    types.EntryStatus(q.Get("status")),
	}

	if s := q.Get("since"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid since timestamp, want RFC3339", err)
			return
		}
		opts.CreatedAfter = ts
	}
	if s := q.Get("until"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid until timestamp, want RFC3339", err)
			return
		}
		opts.CreatedBefore = ts
	}

	opts.Normalize()

	result, err := h.engine.ListEntries(r.Context(), opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list entries", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// CreateEntry handles POST /api/entries - append a journal entry. The entry
// is stored with status "pending" and enrichment happens asynchronously.
func (h *APIHandlers) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	entry, err := h.engine.CreateEntry(r.Context(), req.Content)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, "content is required", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create entry", err)
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

// GetEntry handles GET /api/entries/{id} - get a single entry by ID.
func (h *APIHandlers) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "entry ID is required", nil)
		return
	}

	entry, err := h.engine.GetEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "entry not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get entry", err)
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

// DeleteEntry handles DELETE /api/entries/{id} - permanently remove an entry.
func (h *APIHandlers) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "entry ID is required", nil)
		return
	}

	if err := h.engine.DeleteEntry(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "entry not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete entry", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateFact handles POST /api/facts - declare a standing fact about the user.
func (h *APIHandlers) CreateFact(w http.ResponseWriter, r *http.Request) {
	var req CreateFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	fact, err := h.engine.AddFact(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, "invalid fact", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create fact", err)
		return
	}

	respondJSON(w, http.StatusCreated, fact)
}

// ListFacts handles GET /api/facts - list active facts.
func (h *APIHandlers) ListFacts(w http.ResponseWriter, r *http.Request) {
	facts, err := h.engine.ActiveFacts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list facts", err)
		return
	}
	if facts == nil {
		facts = []types.UserFact{}
	}

	respondJSON(w, http.StatusOK, FactsResponse{Facts: facts})
}

// DeleteFact handles DELETE /api/facts/{id} - deactivate a fact. Facts are
// soft-deleted; old entries keep the context they were written with.
func (h *APIHandlers) DeleteFact(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "fact ID is required", nil)
		return
	}

	if err := h.engine.RemoveFact(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "fact not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to remove fact", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetStats handles GET /api/stats - entry counts, streaks, and queue depth.
func (h *APIHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute stats", err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// GetHealth handles GET /api/health. The store being down makes the service
// unavailable; a dead Ollama only degrades it, since enrichment falls back
// to heuristic extraction.
func (h *APIHandlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := HealthResponse{Status: "ok", Store: "ok", Ollama: "ok"}
	code := http.StatusOK

	if err := h.engine.Ping(r.Context()); err != nil {
		resp.Store = "down"
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	if err := h.ollama.HealthCheck(r.Context()); err != nil {
		resp.Ollama = "down"
		resp.Status = "degraded"
	}

	respondJSON(w, code, resp)
}

// Helper functions

// parseInt parses an integer from a string, returning defaultValue if parsing fails.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; log instead of writing a second response.
		log.Printf("handlers: failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}
