// Package postgres provides the PostgreSQL implementation of the storage
// interfaces. It mirrors the sqlite backend's semantics for deployments that
// already run a PostgreSQL server.
package postgres

// SchemaVersion is the schema generation this build writes and understands.
const SchemaVersion = 1

// Schema contains the SQL statements to create the database schema.
// All statements are idempotent (IF NOT EXISTS).
const Schema = `
-- Entries table: raw journal entries plus enrichment results
CREATE TABLE IF NOT EXISTS entries (
    id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,

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
    enriched_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
CREATE INDEX IF NOT EXISTS idx_entries_status ON entries(status);

-- User facts: user-declared statements, soft-deleted only
CREATE TABLE IF NOT EXISTS user_facts (
    id TEXT PRIMARY KEY,
    fact_text TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT 'other',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL
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
    confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    first_seen TIMESTAMPTZ NOT NULL,
    last_seen TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entity_patterns_mentions ON entity_patterns(mention_count);

-- Temporal patterns: writing-rhythm buckets keyed by (time block, weekday)
CREATE TABLE IF NOT EXISTS temporal_patterns (
    time_block TEXT NOT NULL,
    weekday TEXT NOT NULL,
    common_themes TEXT NOT NULL DEFAULT '[]',
    common_emotions TEXT NOT NULL DEFAULT '[]',
    sample_count INTEGER NOT NULL DEFAULT 0,
    confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (time_block, weekday)
);

-- Schema version bookkeeping (single row, id enforced to 1)
CREATE TABLE IF NOT EXISTS schema_info (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    version INTEGER NOT NULL
);

INSERT INTO schema_info (id, version) VALUES (1, 1) ON CONFLICT (id) DO NOTHING;
`
