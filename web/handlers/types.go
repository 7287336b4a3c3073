package handlers

import "github.com/quietlog/loom/pkg/types"

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CreateEntryRequest is the request body for POST /api/entries.
type CreateEntryRequest struct {
	Content string `json:"content"`
}

// CreateFactRequest is the request body for POST /api/facts.
type CreateFactRequest struct {
	Text string `json:"text"`
}

// FactsResponse is the response format for GET /api/facts.
type FactsResponse struct {
	Facts []types.UserFact `json:"facts"`
}

// ContextResponse is the response format for GET /api/patterns/context.
// Context is the exact string the extraction prompts would carry for the
// given text.
type ContextResponse struct {
	Context string `json:"context"`
}

// InsightsResponse is the response format for GET /api/insights.
type InsightsResponse struct {
	Insights []string `json:"insights"`
}

// PurgeResponse is the response format for DELETE /api/patterns.
type PurgeResponse struct {
	EntitiesRemoved int `json:"entities_removed"`
	BucketsRemoved  int `json:"buckets_removed"`
}

// HealthResponse is the response format for GET /api/health. A dead Ollama
// degrades the service (enrichment falls back to heuristics) but does not
// take it down.
type HealthResponse struct {
	Status string `json:"status"` // "ok" or "degraded"
	Store  string `json:"store"`  // "ok" or "down"
	Ollama string `json:"ollama"` // "ok" or "down"
}

// EnrichmentEvent is broadcast over the WebSocket hub when the pipeline
// finishes an entry.
type EnrichmentEvent struct {
	Type    string `json:"type"` // always "enrichment_complete"
	EntryID string `json:"entry_id"`
	Status  string `json:"status"`
}
