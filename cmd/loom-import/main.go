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

	"github.com/quietlog/loom/internal/importer"
	"github.com/quietlog/loom/internal/storage/sqlite"
)

func main() {
	dir := flag.String("dir", "", "Directory of Markdown files to import (required)")
	dbPath := flag.String("db", "./data/loom.db", "SQLite database path")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: loom-import -dir <markdown-directory> [-db <path>]")
		os.Exit(2)
	}

	if parent := filepath.Dir(*dbPath); parent != "." {
		if err := os.MkdirAll(parent, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	store, err := sqlite.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	// Ctrl-C stops the walk after the current file; everything imported so
	// far stays in the database.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := importer.New(store).Run(ctx, *dir)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Printf("Found %d Markdown files in %s\n", result.FilesFound, *dir)
	fmt.Printf("  imported: %d\n", result.Imported)
	fmt.Printf("  skipped:  %d\n", result.Skipped)
	fmt.Printf("  failed:   %d\n", result.Failed)
	fmt.Printf("  took:     %s\n", result.Duration.Round(time.Millisecond))
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "  warning: %s\n", e)
	}
	if result.Imported > 0 {
		fmt.Println("Imported entries are pending; they will be enriched the next time loom-web starts.")
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}
