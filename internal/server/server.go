// Package server provides HTTP server initialization and lifecycle management
// for the loom journaling service.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/quietlog/loom/internal/config"
	"github.com/quietlog/loom/internal/engine"
	"github.com/quietlog/loom/web/handlers"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start initializes and starts the HTTP server.
// It returns the actual address being listened on (useful for testing with
// port 0) and the WebSocketHub for wiring enrichment event broadcasts.
// The server shuts down when ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, eng *engine.Engine, ollama handlers.HealthChecker) (string, *handlers.WebSocketHub, error) {
	mux := http.NewServeMux()

	// Create WebSocket hub
	wsHub := handlers.NewWebSocketHub()
	go wsHub.Run()

	rateLimiter := handlers.NewRateLimiter(float64(cfg.Server.RateLimit), cfg.Server.RateBurst)

	api := handlers.NewAPIHandlers(eng, ollama)

	// API routes
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/entries", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			api.ListEntries(w, r)
		case http.MethodPost:
			api.CreateEntry(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			api.GetEntry(w, r)
		case http.MethodDelete:
			api.DeleteEntry(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/facts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			api.ListFacts(w, r)
		case http.MethodPost:
			api.CreateFact(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/facts/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			api.DeleteFact(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/patterns", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			api.GetPatternReport(w, r)
		case http.MethodDelete:
			api.PurgePatterns(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/patterns/context", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			api.GetPatternContext(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/insights", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			api.GetInsights(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			api.GetStats(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Health endpoint - registered outside the logged API mux so probes
	// do not flood the request log.
	mux.HandleFunc("/api/health", api.GetHealth)

	mux.Handle("/api/", handlers.LogRequests(apiMux))

	// WebSocket endpoint. The upgrade needs http.Hijacker, so it stays off
	// the logging middleware.
	mux.Handle("/ws", wsHub)

	// Wrap entire server with rate limiting, then security headers
	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	// Create server with security timeouts
	addr := cfg.Server.Addr()
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		wsHub.Stop()
		return "", nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, wsHub, nil
}
