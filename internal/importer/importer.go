// Package importer backfills a journal from a directory of Markdown files,
// such as an Obsidian vault or a folder of daily notes. Imported entries are
// stored pending; the enrichment pipeline picks them up on the next service
// start.
package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quietlog/loom/internal/storage"
	"github.com/quietlog/loom/pkg/types"
)

// Result is the summary produced by a completed import run.
type Result struct {
	FilesFound int           `json:"files_found"`
	Imported   int           `json:"imported"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Errors     []string      `json:"errors,omitempty"`
	Duration   time.Duration `json:"duration_ms"`
}

// Importer walks a Markdown directory and creates pending journal entries.
type Importer struct {
	store storage.EntryStore
}

// New creates an importer that writes entries to the given store.
func New(store storage.EntryStore) *Importer {
	return &Importer{store: store}
}

// Run imports every Markdown file under dirPath. Individual files that fail
// to read, parse, or store are skipped and reported in the result; the batch
// itself only fails when the directory cannot be walked at all.
func (imp *Importer) Run(ctx context.Context, dirPath string) (*Result, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access directory %q: %w", dirPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", dirPath)
	}

	start := time.Now()
	result := &Result{}

	files, err := collectMarkdownFiles(dirPath)
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", dirPath, err)
	}
	result.FilesFound = len(files)

	for _, absPath := range files {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "import canceled")
			break
		}

		rel, _ := filepath.Rel(dirPath, absPath)

		data, err := os.ReadFile(absPath)
		if err != nil {
			log.Printf("import: skip %s: read error: %v", rel, err)
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: read error: %v", rel, err))
			continue
		}

		if len(strings.TrimSpace(string(data))) == 0 {
			result.Skipped++
			continue
		}

		note, err := ParseMarkdownNote(data, rel)
		if err != nil {
			log.Printf("import: skip %s: parse error: %v", rel, err)
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: parse error: %v", rel, err))
			continue
		}

		// Frontmatter-only files have nothing to journal.
		if note.Content == "" {
			result.Skipped++
			continue
		}

		if err := imp.storeEntry(ctx, note, absPath); err != nil {
			log.Printf("import: failed to store %s: %v", rel, err)
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: store error: %v", rel, err))
			continue
		}
		result.Imported++
	}

	result.Duration = time.Since(start)
	return result, nil
}

// storeEntry converts a parsed note into a pending journal entry. The entry
// timestamp comes from the note's date field, falling back to the file's
// modification time so old notes land in their original time buckets.
func (imp *Importer) storeEntry(ctx context.Context, note *ParsedNote, absPath string) error {
	createdAt := note.CreatedAt
	if createdAt.IsZero() {
		if info, err := os.Stat(absPath); err == nil {
			createdAt = info.ModTime()
		} else {
			createdAt = time.Now()
		}
	}

	// Entries carry at most 3 tags; enrichment re-verifies them later.
	tags := note.Tags
	if len(tags) > 3 {
		tags = tags[:3]
	}

	entry := &types.Entry{
		ID:        uuid.NewString(),
		Content:   note.Content,
		CreatedAt: createdAt,
		Tags:      tags,
		Status:    types.EntryPending,
	}
	return imp.store.CreateEntry(ctx, entry)
}

// collectMarkdownFiles walks dirPath and returns all .md / .markdown files.
// Hidden directories (e.g. .obsidian, .git, .trash) are skipped.
func collectMarkdownFiles(dirPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dirPath {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == ".md" || ext == ".markdown" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
