package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaClient handles communication with the Ollama API for local LLM
// inference. All completion calls are wrapped with circuit breaker
// protection so a dead Ollama does not stall the enrichment pipeline.
type OllamaClient struct {
	baseURL        string
	client         *http.Client
	circuitBreaker *CircuitBreaker
	model          string
	timeout        time.Duration
}

// OllamaConfig holds Ollama client configuration.
type OllamaConfig struct {
	// BaseURL is the base URL for the Ollama API (default: http://localhost:11434)
	BaseURL string

	// Model is the model name to use for completions (default: llama3.2)
	Model string

	// Timeout is the per-request timeout duration (default: 10s)
	Timeout time.Duration
}

// generateRequest represents the request body for the /api/generate endpoint.
// Stream is always false; the extractors need the full response in one shot.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse represents the response from the /api/generate endpoint
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// tagsResponse represents the response from the /api/tags endpoint
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewOllamaClient creates a new Ollama client with the given configuration.
// If configuration values are not provided, the following defaults are used:
//   - BaseURL: http://localhost:11434
//   - Model: llama3.2
//   - Timeout: 10 seconds
func NewOllamaClient(config OllamaConfig) *OllamaClient {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "llama3.2"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &OllamaClient{
		baseURL: config.BaseURL,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		circuitBreaker: NewCircuitBreaker(),
		model:          config.Model,
		timeout:        config.Timeout,
	}
}

// Complete sends a completion request to Ollama and returns the response
// text. The request is wrapped with circuit breaker protection; an open
// circuit fails immediately without touching the network.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - prompt: The text prompt to send to the LLM
//
// Returns:
//   - The completion response text
//   - An error if the request fails or the circuit breaker is open
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.complete(ctx, prompt)
	})

	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return "", fmt.Errorf("ollama circuit breaker open: %w", err)
		}
		return "", err
	}

	return result.(string), nil
}

// complete is the internal implementation of Complete without circuit breaker wrapping
func (c *OllamaClient) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var respData generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return respData.Response, nil
}

// HealthCheck verifies that Ollama is reachable by checking the /api/version
// endpoint. This does not use circuit breaker protection since it's a health
// check itself.
func (c *OllamaClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// ListModels returns a list of available models from Ollama.
// This is useful for discovering what models are installed and can be used.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//
// Returns:
//   - A slice of model names
//   - An error if the request fails
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var respData tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	models := make([]string, len(respData.Models))
	for i, model := range respData.Models {
		models[i] = model.Name
	}

	return models, nil
}

// GetModel returns the configured model name.
func (c *OllamaClient) GetModel() string {
	return c.model
}

// BreakerState returns the current circuit breaker state for diagnostics.
func (c *OllamaClient) BreakerState() string {
	return c.circuitBreaker.State()
}

// Compile-time assertion that OllamaClient satisfies TextGenerator.
var _ TextGenerator = (*OllamaClient)(nil)
