package handlers

import (
	"net/http"
	"strconv"
	"strings"
)

// GetPatternReport handles GET /api/patterns - a plain-text digest of learned
// entity and temporal patterns, most-mentioned first.
func (h *APIHandlers) GetPatternReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.PatternReport(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to build pattern report", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report))
}

// GetPatternContext handles GET /api/patterns/context?text=... - shows the
// context block the enrichment pipeline would assemble for the given draft.
func (h *APIHandlers) GetPatternContext(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if strings.TrimSpace(text) == "" {
		respondError(w, http.StatusBadRequest, "text query parameter is required", nil)
		return
	}

	preview, err := h.engine.ContextPreview(r.Context(), text)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to build context preview", err)
		return
	}

	respondJSON(w, http.StatusOK, ContextResponse{Context: preview})
}

// PurgePatterns handles DELETE /api/patterns?match=...&temporal=... - forget
// learned patterns whose entity name contains the match string. Entries are
// untouched; only the learned aggregates go.
func (h *APIHandlers) PurgePatterns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	match := q.Get("match")
	if strings.TrimSpace(match) == "" {
		respondError(w, http.StatusBadRequest, "match query parameter is required", nil)
		return
	}

	temporal := false
	if s := q.Get("temporal"); s != "" {
		var err error
		temporal, err = strconv.ParseBool(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid temporal flag, want true or false", err)
			return
		}
	}

	entities, buckets, err := h.engine.PurgePatterns(r.Context(), match, temporal)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to purge patterns", err)
		return
	}

	respondJSON(w, http.StatusOK, PurgeResponse{
		EntitiesRemoved: entities,
		BucketsRemoved:  buckets,
	})
}

// GetInsights handles GET /api/insights - cached observations derived from
// cross-referencing patterns. Refreshed nightly by the scheduler.
func (h *APIHandlers) GetInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.engine.Insights(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load insights", err)
		return
	}
	if insights == nil {
		insights = []string{}
	}

	respondJSON(w, http.StatusOK, InsightsResponse{Insights: insights})
}
