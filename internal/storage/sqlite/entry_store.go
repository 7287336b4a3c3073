package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/quietlog/loom/internal/storage"
	"github.com/quietlog/loom/pkg/types"
)

// CreateEntry inserts a new journal entry.
func (s *Store) CreateEntry(ctx context.Context, entry *types.Entry) error {
	if entry == nil {
		return storage.ErrInvalidInput
	}

	if entry.ID == "" {
		return fmt.Errorf("%w: entry ID is required", storage.ErrInvalidInput)
	}

	if strings.TrimSpace(entry.Content) == "" {
		return fmt.Errorf("%w: entry content is required", storage.ErrInvalidInput)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if entry.Status == "" {
		entry.Status = types.EntryPending
	}

	tagsJSON, err := marshalStrings(entry.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	actionsJSON, err := marshalStrings(entry.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}
	themesJSON, err := marshalStrings(entry.Themes)
	if err != nil {
		return fmt.Errorf("failed to marshal themes: %w", err)
	}
	peopleJSON, err := marshalStrings(entry.People)
	if err != nil {
		return fmt.Errorf("failed to marshal people: %w", err)
	}

	query := `
		INSERT INTO entries (
			id, content, created_at,
			tags, mood, emotion, actions, themes, people, urgency,
			status, enrich_attempts, enrich_error, enriched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Content,
		entry.CreatedAt,
		tagsJSON,
		nullableString(entry.Mood),
		nullableString(entry.Emotion),
		actionsJSON,
		themesJSON,
		peopleJSON,
		nullableString(entry.Urgency),
		entry.Status,
		entry.EnrichAttempts,
		nullableString(entry.EnrichError),
		nullableTime(entry.EnrichedAt),
	)

	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	return nil
}

// entryColumns is the column list shared by entry reads.
const entryColumns = `
	id, content, created_at,
	tags, mood, emotion, actions, themes, people, urgency,
	status, enrich_attempts, enrich_error, enriched_at
`

// GetEntry retrieves an entry by ID.
func (s *Store) GetEntry(ctx context.Context, id string) (*types.Entry, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: entry ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = ?", id)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	return entry, nil
}

// ListEntries retrieves entries with pagination and filtering.
func (s *Store) ListEntries(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Entry], error) {
	// Normalize options (must be done before ORDER BY construction to prevent SQL injection)
	opts.Normalize()

	var conditions []string
	var args []interface{}

	if opts.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, opts.Status)
	}

	if !opts.CreatedAfter.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, opts.CreatedAfter)
	}

	if !opts.CreatedBefore.IsZero() {
		conditions = append(conditions, "created_at < ?")
		args = append(args, opts.CreatedBefore)
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total before pagination
	var total int
	countQuery := "SELECT COUNT(*) FROM entries" + whereClause
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}

	// Sorting is safe from SQL injection due to Normalize() whitelist validation above
	query := "SELECT " + entryColumns + " FROM entries" + whereClause +
		fmt.Sprintf(" ORDER BY %s %s", opts.SortBy, opts.SortOrder) +
		" LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []types.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return &storage.PaginatedResult[types.Entry]{
		Items:    entries,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset()+len(entries) < total,
	}, nil
}

// EntriesSince returns all entries created at or after the given time,
// oldest first.
func (s *Store) EntriesSince(ctx context.Context, since time.Time) ([]types.Entry, error) {
	query := "SELECT " + entryColumns + " FROM entries WHERE created_at >= ? ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var entries []types.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// UpdateEntryStatus updates the enrichment status of an entry.
func (s *Store) UpdateEntryStatus(ctx context.Context, id string, status types.EntryStatus) error {
	if id == "" {
		return fmt.Errorf("%w: entry ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, "UPDATE entries SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update entry status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// UpdateEnrichment writes extraction results and final status back to an entry.
func (s *Store) UpdateEnrichment(ctx context.Context, id string, update storage.EnrichmentUpdate) error {
	if id == "" {
		return fmt.Errorf("%w: entry ID is required", storage.ErrInvalidInput)
	}

	tagsJSON, err := marshalStrings(update.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	actionsJSON, err := marshalStrings(update.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}
	themesJSON, err := marshalStrings(update.Themes)
	if err != nil {
		return fmt.Errorf("failed to marshal themes: %w", err)
	}
	peopleJSON, err := marshalStrings(update.People)
	if err != nil {
		return fmt.Errorf("failed to marshal people: %w", err)
	}

	query := `
		UPDATE entries SET
			tags = ?,
			mood = ?,
			emotion = ?,
			actions = ?,
			themes = ?,
			people = ?,
			urgency = ?,
			status = ?,
			enrich_attempts = ?,
			enrich_error = ?,
			enriched_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		tagsJSON,
		nullableString(update.Mood),
		nullableString(update.Emotion),
		actionsJSON,
		themesJSON,
		peopleJSON,
		nullableString(update.Urgency),
		update.Status,
		update.Attempts,
		nullableString(update.EnrichError),
		nullableTime(update.EnrichedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update enrichment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// DeleteEntry permanently removes an entry.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: entry ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// CountEntries returns the total number of stored entries.
func (s *Store) CountEntries(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// EntryCountsByDay returns entry counts keyed by calendar day ("2006-01-02").
func (s *Store) EntryCountsByDay(ctx context.Context) (map[string]int, error) {
	// substr(created_at, 1, 10) extracts the "YYYY-MM-DD" prefix of the stored
	// text. Go's SQLite driver stores time.Time as
	// "2006-01-02 15:04:05.999999999 -0700 MST m=+..." which SQLite's date
	// functions cannot parse, so the day is read straight off the string.
	rows, err := s.db.QueryContext(ctx,
		"SELECT substr(created_at, 1, 10), COUNT(*) FROM entries GROUP BY 1")
	if err != nil {
		return nil, fmt.Errorf("failed to count entries by day: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("failed to scan day count: %w", err)
		}
		counts[day] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate day counts: %w", err)
	}

	return counts, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEntry reads one entry row. Corrupt JSON in an enrichment column is
// logged and leaves that field empty rather than failing the whole read:
// enrichment data is advisory.
func scanEntry(row rowScanner) (*types.Entry, error) {
	var entry types.Entry
	var tagsJSON, actionsJSON, themesJSON, peopleJSON sql.NullString
	var mood, emotion, urgency, enrichError sql.NullString
	var enrichedAt sql.NullTime

	err := row.Scan(
		&entry.ID,
		&entry.Content,
		&entry.CreatedAt,
		&tagsJSON,
		&mood,
		&emotion,
		&actionsJSON,
		&themesJSON,
		&peopleJSON,
		&urgency,
		&entry.Status,
		&entry.EnrichAttempts,
		&enrichError,
		&enrichedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Tags = unmarshalStrings(entry.ID, "tags", tagsJSON)
	entry.Actions = unmarshalStrings(entry.ID, "actions", actionsJSON)
	entry.Themes = unmarshalStrings(entry.ID, "themes", themesJSON)
	entry.People = unmarshalStrings(entry.ID, "people", peopleJSON)

	if mood.Valid {
		entry.Mood = mood.String
	}
	if emotion.Valid {
		entry.Emotion = emotion.String
	}
	if urgency.Valid {
		entry.Urgency = urgency.String
	}
	if enrichError.Valid {
		entry.EnrichError = enrichError.String
	}
	if enrichedAt.Valid {
		t := enrichedAt.Time
		entry.EnrichedAt = &t
	}

	return &entry, nil
}

// marshalStrings serializes a string slice to JSON, mapping nil and empty
// to NULL.
func marshalStrings(values []string) (sql.NullString, error) {
	if len(values) == 0 {
		return sql.NullString{Valid: false}, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// unmarshalStrings parses a JSON string array column, logging and returning
// nil on corrupt data.
func unmarshalStrings(id, column string, value sql.NullString) []string {
	if !value.Valid || value.String == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(value.String), &values); err != nil {
		log.Printf("sqlite: skipping corrupt %s for entry %s: %v", column, id, err)
		return nil
	}
	return values
}
