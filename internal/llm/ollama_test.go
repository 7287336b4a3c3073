package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCompleteSendsNonStreamingRequest(t *testing.T) {
	var gotReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: `{"urgency":"low"}`, Done: true})
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "test-model"})

	got, err := client.Complete(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != `{"urgency":"low"}` {
		t.Errorf("unexpected response %q", got)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("model = %q, want test-model", gotReq.Model)
	}
	if gotReq.Prompt != "classify this" {
		t.Errorf("prompt = %q", gotReq.Prompt)
	}
	if gotReq.Stream {
		t.Error("stream must be false")
	}
}

func TestCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL})

	if _, err := client.Complete(context.Background(), "x"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestCompleteCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Timeout: time.Second})

	for i := 0; i < 3; i++ {
		if _, err := client.Complete(context.Background(), "x"); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	if state := client.BreakerState(); state != "open" {
		t.Fatalf("breaker state = %q, want open", state)
	}

	_, err := client.Complete(context.Background(), "x")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"version":"0.5.0"}`))
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}

	client = NewOllamaClient(OllamaConfig{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3.2"},{"name":"phi3:mini"}]}`))
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL})
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 || models[0] != "llama3.2" || models[1] != "phi3:mini" {
		t.Errorf("unexpected models %v", models)
	}
}

func TestDefaults(t *testing.T) {
	client := NewOllamaClient(OllamaConfig{})
	if client.baseURL != "http://localhost:11434" {
		t.Errorf("baseURL = %q", client.baseURL)
	}
	if client.GetModel() != "llama3.2" {
		t.Errorf("model = %q", client.GetModel())
	}
	if client.timeout != 10*time.Second {
		t.Errorf("timeout = %v", client.timeout)
	}
}
