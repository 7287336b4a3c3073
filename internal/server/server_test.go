// Package server_test exercises the HTTP server wiring end to end over an
// in-memory store and a stubbed model.
package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietlog/loom/internal/config"
	"github.com/quietlog/loom/internal/engine"
	"github.com/quietlog/loom/internal/server"
	"github.com/quietlog/loom/internal/storage/sqlite"
)

// stubGenerator returns an empty extraction so tests never need a live model.
type stubGenerator struct{}

func (stubGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	return "{}", nil
}

func (stubGenerator) GetModel() string { return "stub" }

// stubHealth reports the inference backend as healthy or down.
type stubHealth struct{ err error }

func (s stubHealth) HealthCheck(ctx context.Context) error { return s.err }

// startTestServer starts a server on a random port over an in-memory SQLite
// store. ollamaErr controls what the health endpoint sees for the model
// backend. Cleanup is registered with t.Cleanup.
func startTestServer(t *testing.T, ollamaErr error) string {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0, // Use random port for tests
			// Generous limits so sequential test requests never hit 429.
			RateLimit: 100,
			RateBurst: 200,
		},
	}

	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err, "failed to create in-memory SQLite store")

	eng, err := engine.NewEngine(store, stubGenerator{}, engine.DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, eng.Start(ctx))

	addr, _, err := server.Start(ctx, cfg, eng, stubHealth{err: ollamaErr})
	require.NoError(t, err, "server failed to start")

	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = eng.Shutdown(shutdownCtx)
		shutdownCancel()
		cancel()
		time.Sleep(100 * time.Millisecond) // Give server time to shut down
		_ = store.Close()
	})

	// Give server a moment to be fully ready for connections
	time.Sleep(100 * time.Millisecond)

	return "http://" + addr
}

func TestServer_StartsOnRandomPort(t *testing.T) {
	baseURL := startTestServer(t, nil)

	require.True(t, strings.HasPrefix(baseURL, "http://"))
	addr := strings.TrimPrefix(baseURL, "http://")

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err, "address should be valid host:port format")
	assert.Equal(t, "127.0.0.1", host)
	assert.NotEqual(t, "0", port, "port should be resolved to the listener's port")
}

func TestServer_HealthEndpoint(t *testing.T) {
	baseURL := startTestServer(t, nil)

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "ok", health["store"])
	assert.Equal(t, "ok", health["ollama"])
}

func TestServer_HealthDegradedWhenOllamaDown(t *testing.T) {
	baseURL := startTestServer(t, errors.New("connection refused"))

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	// The store still works, so the service stays up in degraded mode.
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "degraded", health["status"])
	assert.Equal(t, "ok", health["store"])
	assert.Equal(t, "down", health["ollama"])
}

func TestServer_SecurityHeaders(t *testing.T) {
	baseURL := startTestServer(t, nil)

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	expectedHeaders := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}

	for headerName, expectedValue := range expectedHeaders {
		assert.Equal(t, expectedValue, resp.Header.Get(headerName), "header %q", headerName)
	}
}

func TestServer_RouteRegistration(t *testing.T) {
	baseURL := startTestServer(t, nil)

	apiPaths := []string{
		"/api/entries",
		"/api/facts",
		"/api/patterns",
		"/api/insights",
		"/api/stats",
		"/api/health",
	}

	for _, path := range apiPaths {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(baseURL + path)
			require.NoError(t, err, "failed to GET %s", path)
			defer func() { _ = resp.Body.Close() }()

			assert.NotEqual(t, http.StatusNotFound, resp.StatusCode,
				"route %s should be registered (got 404)", path)
			assert.Less(t, resp.StatusCode, 500,
				"route %s should not return 5xx (got %d)", path, resp.StatusCode)
		})
	}
}

func TestServer_WebSocketRouteRegistered(t *testing.T) {
	baseURL := startTestServer(t, nil)

	// A plain GET without upgrade headers is rejected by the handshake, but
	// the route itself must exist.
	resp, err := http.Get(baseURL + "/ws")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.NotEqual(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_EntryLifecycle(t *testing.T) {
	baseURL := startTestServer(t, nil)

	// Create
	resp, err := http.Post(baseURL+"/api/entries", "application/json",
		strings.NewReader(`{"content":"Coffee with Sarah this morning."}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID      string `json:"id"`
		Content string `json:"content"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Coffee with Sarah this morning.", created.Content)
	assert.Equal(t, "pending", created.Status)

	// List
	resp, err = http.Get(baseURL + "/api/entries")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Items []json.RawMessage `json:"items"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, 1, page.Total)
	assert.Len(t, page.Items, 1)

	// Get by ID
	resp, err = http.Get(baseURL + "/api/entries/" + created.ID)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Delete
	req, err := http.NewRequest(http.MethodDelete, baseURL+"/api/entries/"+created.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Gone
	resp, err = http.Get(baseURL + "/api/entries/" + created.ID)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	baseURL := startTestServer(t, nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/api/entries"},
		{http.MethodPost, "/api/health"},
		{http.MethodDelete, "/api/insights"},
		{http.MethodPost, "/api/patterns/context"},
	}

	for _, tt := range tests {
		t.Run(tt.method+"_"+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, baseURL+tt.path, nil)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		})
	}
}

func TestServer_NotFoundHandling(t *testing.T) {
	baseURL := startTestServer(t, nil)

	resp, err := http.Get(baseURL + "/nonexistent/route")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_GracefulShutdown(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:      "127.0.0.1",
			Port:      0,
			RateLimit: 100,
			RateBurst: 200,
		},
	}

	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	eng, err := engine.NewEngine(store, stubGenerator{}, engine.DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, eng.Start(ctx))

	addr, _, err := server.Start(ctx, cfg, eng, stubHealth{})
	require.NoError(t, err)
	baseURL := "http://" + addr

	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err, "server should be responding before shutdown")
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	time.Sleep(200 * time.Millisecond)

	checkCtx, checkCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer checkCancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, baseURL+"/api/health", nil)
	require.NoError(t, err)
	_, err = http.DefaultClient.Do(req)
	assert.Error(t, err, "server should stop responding after shutdown")
}
