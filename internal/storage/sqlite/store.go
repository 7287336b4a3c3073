package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store with WAL self-healing.
// If the initial open fails due to stale WAL files (left behind by a crashed
// process), it verifies no other process holds them and retries once after
// removing the stale -shm/-wal files.
func NewStore(dsn string) (*Store, error) {
	store, err := openStore(dsn)
	if err == nil {
		return store, nil
	}

	if !isRecoverableWALError(err) {
		return nil, err
	}

	dbPath := dbPathFromDSN(dsn)
	if dbPath == "" || dbPath == ":memory:" {
		return nil, err
	}

	if !isWALStale(dbPath) {
		return nil, err
	}

	removeStaleWAL(dbPath)

	store, retryErr := openStore(dsn)
	if retryErr != nil {
		return nil, fmt.Errorf("failed after WAL recovery: %w (original: %v)", retryErr, err)
	}

	log.Printf("sqlite: recovered from stale WAL files for %s", dbPath)
	return store, nil
}

// openStore opens a SQLite database, configures WAL mode, creates the
// schema, and verifies the stored schema version.
func openStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Using a single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load.
	// WAL mode allows concurrent readers to proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Connections live for the lifetime of the store.

	// Enable WAL mode for better read concurrency (readers don't block writers).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout so that callers wait instead of getting an immediate
	// SQLITE_BUSY error when the connection is held by another goroutine.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Create schema
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	// Refuse databases written by a newer build.
	var version int
	if err := db.QueryRow("SELECT version FROM schema_info WHERE id = 1").Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > SchemaVersion {
		db.Close()
		return nil, fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}

	return &Store{db: db}, nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB exposes the underlying database connection. Tests use it to seed
// rows the public API refuses to write, such as corrupt pattern JSON.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// nullableTime converts a time pointer to sql.NullTime.
func nullableTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullableString converts a string to sql.NullString.
// An empty string is treated as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// dbPathFromDSN extracts the filesystem path from a SQLite DSN.
// Handles bare paths ("/path/to/db.sqlite") and file: URIs ("file:/path/to/db.sqlite?mode=rwc").
// Returns empty string for in-memory databases or unparseable DSNs.
func dbPathFromDSN(dsn string) string {
	if dsn == ":memory:" || dsn == "" {
		return ""
	}

	if strings.HasPrefix(dsn, "file:") {
		u, err := url.Parse(dsn)
		if err != nil {
			return ""
		}
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == ":memory:" || path == "" {
			return ""
		}
		return path
	}

	return dsn
}

// isRecoverableWALError returns true if the error matches patterns caused by
// stale WAL files left behind after a crash (SIGKILL, OOM, etc.).
func isRecoverableWALError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "disk I/O error") ||
		strings.Contains(msg, "database is locked")
}

// isWALStale checks whether -shm/-wal files exist for the given database path
// AND no other process currently holds them open (via lsof).
// Returns false if lsof is unavailable (conservative: no deletion).
func isWALStale(dbPath string) bool {
	shmPath := dbPath + "-shm"
	walPath := dbPath + "-wal"

	if !fileExists(shmPath) && !fileExists(walPath) {
		return false
	}

	// Check if any process has the database or WAL files open.
	lsofPath, err := exec.LookPath("lsof")
	if err != nil {
		// lsof not available (e.g., Alpine Docker) — conservative fallback.
		return false
	}

	// Check the main db file, -shm, and -wal in a single lsof invocation.
	cmd := exec.Command(lsofPath, "-t", dbPath, shmPath, walPath)
	output, err := cmd.Output()
	if err != nil {
		// lsof returns exit code 1 when no files are open — that means stale.
		return true
	}

	// If lsof produced output, some process has these files open — not stale.
	return strings.TrimSpace(string(output)) == ""
}

// removeStaleWAL removes -shm and -wal files for the given database path.
func removeStaleWAL(dbPath string) {
	for _, suffix := range []string{"-shm", "-wal"} {
		path := dbPath + suffix
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("sqlite: failed to remove stale %s: %v", path, err)
		}
	}
}

// fileExists returns true if the path exists on disk.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
