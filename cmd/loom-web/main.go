package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/quietlog/loom/internal/config"
	"github.com/quietlog/loom/internal/engine"
	"github.com/quietlog/loom/internal/llm"
	"github.com/quietlog/loom/internal/server"
	"github.com/quietlog/loom/internal/storage"
	"github.com/quietlog/loom/internal/storage/postgres"
	"github.com/quietlog/loom/internal/storage/sqlite"
	"github.com/quietlog/loom/pkg/types"
	"github.com/quietlog/loom/web/handlers"
)

func main() {
	// Parse command line flags. Everything else comes from LOOM_* env vars.
	dbPath := flag.String("db", "", "SQLite database path (overrides LOOM_DB_PATH)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.DB.Driver = "sqlite"
		cfg.DB.Path = *dbPath
	}

	// Initialize storage
	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ollama client for extraction; the engine falls back to heuristics
	// when it is unreachable, so a missing Ollama never blocks startup.
	ollama := llm.NewOllamaClient(llm.OllamaConfig{
		BaseURL: cfg.Ollama.URL,
		Model:   cfg.Ollama.Model,
		Timeout: cfg.Ollama.Timeout,
	})

	engineCfg := engine.DefaultConfig()
	engineCfg.NumWorkers = cfg.Engine.Workers
	engineCfg.QueueSize = cfg.Engine.QueueSize
	engineCfg.TaskTimeout = cfg.Engine.TaskTimeout
	engineCfg.MaxRetries = cfg.Engine.MaxRetries

	eng, err := engine.NewEngine(store, ollama, engineCfg)
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}

	// Start the server first to get the WebSocket hub, then wire the
	// enrichment callback before starting workers; workers read the
	// callback without a lock, so it must be set before Start.
	addr, wsHub, err := server.Start(ctx, cfg, eng, ollama)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	eng.SetOnEnrichmentComplete(func(entryID string, status types.EntryStatus) {
		wsHub.Broadcast(handlers.EnrichmentEvent{
			Type:    "enrichment_complete",
			EntryID: entryID,
			Status:  string(status),
		})
	})

	// Start enrichment workers
	if err := eng.Start(ctx); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	// Nightly insight refresh
	scheduler, err := engine.NewInsightScheduler(eng, cfg.Engine.InsightSchedule)
	if err != nil {
		log.Fatalf("Failed to create insight scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start insight scheduler: %v", err)
	}
	defer scheduler.Stop()

	log.Printf("Loom running at http://%s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	// Shutdown enrichment workers first so in-flight jobs drain
	if err := eng.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down engine: %v", err)
	}

	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openStore opens the storage backend named by the config. The sqlite
// driver creates the data directory on first run.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.DB.Driver {
	case "postgres":
		return postgres.NewStore(cfg.DB.DSN)
	default:
		if dir := filepath.Dir(cfg.DB.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create data directory %s: %w", dir, err)
			}
		}
		return sqlite.NewStore(cfg.DB.Path)
	}
}
