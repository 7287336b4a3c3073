// Package sqlite provides the SQLite implementation of the storage
// interfaces. It is the default backend: CGO-free via modernc.org/sqlite,
// single-writer, WAL mode.
package sqlite

// SchemaVersion is the schema generation this build writes and understands.
// The version is recorded in schema_info at create time and checked at open;
// opening a database written by a newer build fails rather than guessing.
const SchemaVersion = 1

// Schema contains the SQL statements to create the database schema.
// Correlation maps and signal lists are stored as JSON text columns with
// their shapes fixed by the Go types that marshal them (string->int maps and
// string arrays), not as free-form bags.
const Schema = `
-- Entries table: raw journal entries plus enrichment results
CREATE TABLE IF NOT EXISTS entries (
    id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,

    -- Enrichment results (JSON arrays as TEXT, scalar labels as TEXT)
    tags TEXT,
    mood TEXT,
    emotion TEXT,
    actions TEXT,
    themes TEXT,
    people TEXT,
    urgency TEXT,

    -- Enrichment tracking
    status TEXT NOT NULL DEFAULT 'pending',
    enrich_attempts INTEGER NOT NULL DEFAULT 0,
    enrich_error TEXT,
    enriched_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
CREATE INDEX IF NOT EXISTS idx_entries_status ON entries(status);

-- User facts: user-declared statements, soft-deleted only
CREATE TABLE IF NOT EXISTS user_facts (
    id TEXT PRIMARY KEY,
    fact_text TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT 'other',
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_facts_active ON user_facts(active);

-- Entity patterns: per-person correlation statistics.
-- name_key is the lowercased name used as the upsert key; name preserves
-- the canonical display spelling.
CREATE TABLE IF NOT EXISTS entity_patterns (
    name_key TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    mention_count INTEGER NOT NULL DEFAULT 0,
    theme_correlations TEXT NOT NULL DEFAULT '{}',
    emotion_correlations TEXT NOT NULL DEFAULT '{}',
    urgency_correlations TEXT NOT NULL DEFAULT '{}',
    time_patterns TEXT NOT NULL DEFAULT '{}',
    confidence REAL NOT NULL DEFAULT 0,
    first_seen TIMESTAMP NOT NULL,
    last_seen TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entity_patterns_mentions ON entity_patterns(mention_count);

-- Temporal patterns: writing-rhythm buckets keyed by (time block, weekday)
CREATE TABLE IF NOT EXISTS temporal_patterns (
    time_block TEXT NOT NULL,
    weekday TEXT NOT NULL,
    common_themes TEXT NOT NULL DEFAULT '[]',
    common_emotions TEXT NOT NULL DEFAULT '[]',
    sample_count INTEGER NOT NULL DEFAULT 0,
    confidence REAL NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (time_block, weekday)
);

-- Schema version bookkeeping (single row, id enforced to 1)
CREATE TABLE IF NOT EXISTS schema_info (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    version INTEGER NOT NULL
);

INSERT OR IGNORE INTO schema_info (id, version) VALUES (1, 1);
`
