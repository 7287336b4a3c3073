package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/quietlog/loom/internal/storage"
	"github.com/quietlog/loom/pkg/types"
)

// GetEntityPattern retrieves the pattern for a name (case-insensitive).
func (s *Store) GetEntityPattern(ctx context.Context, name string) (*types.EntityPattern, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: entity name is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT name, mention_count, theme_correlations, emotion_correlations,
		       urgency_correlations, time_patterns, confidence, first_seen, last_seen
		FROM entity_patterns WHERE name_key = $1`, strings.ToLower(name))

	pattern, err := scanEntityPattern(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		if _, ok := err.(*corruptRecordError); ok {
			log.Printf("postgres: skipping corrupt entity pattern %q: %v", name, err)
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to get entity pattern: %w", err)
	}

	return pattern, nil
}

// UpsertEntityPattern creates or replaces the pattern row for pattern.Name.
func (s *Store) UpsertEntityPattern(ctx context.Context, pattern *types.EntityPattern) error {
	if pattern == nil || pattern.Name == "" {
		return fmt.Errorf("%w: entity pattern name is required", storage.ErrInvalidInput)
	}

	themesJSON, err := json.Marshal(orEmptyMap(pattern.ThemeCorrelations))
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal theme correlations: %w", err)
	}
	emotionsJSON, err := json.Marshal(orEmptyMap(pattern.EmotionCorrelations))
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal emotion correlations: %w", err)
	}
	urgencyJSON, err := json.Marshal(orEmptyMap(pattern.UrgencyCorrelations))
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal urgency correlations: %w", err)
	}
	timesJSON, err := json.Marshal(orEmptyMap(pattern.TimePatterns))
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal time patterns: %w", err)
	}

	query := `
		INSERT INTO entity_patterns (
			name_key, name, mention_count,
			theme_correlations, emotion_correlations, urgency_correlations,
			time_patterns, confidence, first_seen, last_seen
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT(name_key) DO UPDATE SET
			name = excluded.name,
			mention_count = excluded.mention_count,
			theme_correlations = excluded.theme_correlations,
			emotion_correlations = excluded.emotion_correlations,
			urgency_correlations = excluded.urgency_correlations,
			time_patterns = excluded.time_patterns,
			confidence = excluded.confidence,
			last_seen = excluded.last_seen
	`

	_, err = s.db.ExecContext(ctx, query,
		strings.ToLower(pattern.Name),
		pattern.Name,
		pattern.MentionCount,
		string(themesJSON),
		string(emotionsJSON),
		string(urgencyJSON),
		string(timesJSON),
		pattern.Confidence,
		pattern.FirstSeen,
		pattern.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert entity pattern: %w", err)
	}

	return nil
}

// ListEntityPatterns returns patterns with mention_count >= minMentions,
// ordered by mention_count descending. Corrupt rows are skipped.
func (s *Store) ListEntityPatterns(ctx context.Context, minMentions, limit int) ([]types.EntityPattern, error) {
	query := `
		SELECT name, mention_count, theme_correlations, emotion_correlations,
		       urgency_correlations, time_patterns, confidence, first_seen, last_seen
		FROM entity_patterns
		WHERE mention_count >= $1
		ORDER BY mention_count DESC, name_key ASC
	`
	args := []interface{}{minMentions}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list entity patterns: %w", err)
	}
	defer rows.Close()

	var patterns []types.EntityPattern
	for rows.Next() {
		pattern, err := scanEntityPattern(rows)
		if err != nil {
			if _, ok := err.(*corruptRecordError); ok {
				log.Printf("postgres: skipping corrupt entity pattern: %v", err)
				continue
			}
			return nil, fmt.Errorf("postgres: failed to scan entity pattern: %w", err)
		}
		patterns = append(patterns, *pattern)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate entity patterns: %w", err)
	}

	return patterns, nil
}

// DeleteEntityPatternsMatching removes entity patterns whose name contains
// the needle (case-insensitive).
func (s *Store) DeleteEntityPatternsMatching(ctx context.Context, needle string) (int, error) {
	if strings.TrimSpace(needle) == "" {
		return 0, fmt.Errorf("%w: needle is required", storage.ErrInvalidInput)
	}

	pattern := "%" + escapeLike(strings.ToLower(needle)) + "%"
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM entity_patterns WHERE name_key LIKE $1 ESCAPE '\'`, pattern)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to delete entity patterns: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to check rows affected: %w", err)
	}

	return int(rows), nil
}

// GetTemporalPattern retrieves one (time block, weekday) bucket.
func (s *Store) GetTemporalPattern(ctx context.Context, timeBlock, weekday string) (*types.TemporalPattern, error) {
	if timeBlock == "" || weekday == "" {
		return nil, fmt.Errorf("%w: time block and weekday are required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT time_block, weekday, common_themes, common_emotions,
		       sample_count, confidence, updated_at
		FROM temporal_patterns WHERE time_block = $1 AND weekday = $2`, timeBlock, weekday)

	pattern, err := scanTemporalPattern(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		if _, ok := err.(*corruptRecordError); ok {
			log.Printf("postgres: skipping corrupt temporal pattern (%s,%s): %v", timeBlock, weekday, err)
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to get temporal pattern: %w", err)
	}

	return pattern, nil
}

// UpsertTemporalPattern creates or replaces one bucket row.
func (s *Store) UpsertTemporalPattern(ctx context.Context, pattern *types.TemporalPattern) error {
	if pattern == nil || pattern.TimeBlock == "" || pattern.Weekday == "" {
		return fmt.Errorf("%w: time block and weekday are required", storage.ErrInvalidInput)
	}

	themesJSON, err := json.Marshal(orEmptySlice(pattern.CommonThemes))
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal common themes: %w", err)
	}
	emotionsJSON, err := json.Marshal(orEmptySlice(pattern.CommonEmotions))
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal common emotions: %w", err)
	}

	query := `
		INSERT INTO temporal_patterns (
			time_block, weekday, common_themes, common_emotions,
			sample_count, confidence, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT(time_block, weekday) DO UPDATE SET
			common_themes = excluded.common_themes,
			common_emotions = excluded.common_emotions,
			sample_count = excluded.sample_count,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		pattern.TimeBlock,
		pattern.Weekday,
		string(themesJSON),
		string(emotionsJSON),
		pattern.SampleCount,
		pattern.Confidence,
		pattern.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert temporal pattern: %w", err)
	}

	return nil
}

// ListTemporalPatterns returns all buckets ordered by sample_count
// descending. Corrupt rows are skipped.
func (s *Store) ListTemporalPatterns(ctx context.Context) ([]types.TemporalPattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time_block, weekday, common_themes, common_emotions,
		       sample_count, confidence, updated_at
		FROM temporal_patterns
		ORDER BY sample_count DESC, time_block ASC, weekday ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list temporal patterns: %w", err)
	}
	defer rows.Close()

	var patterns []types.TemporalPattern
	for rows.Next() {
		pattern, err := scanTemporalPattern(rows)
		if err != nil {
			if _, ok := err.(*corruptRecordError); ok {
				log.Printf("postgres: skipping corrupt temporal pattern: %v", err)
				continue
			}
			return nil, fmt.Errorf("postgres: failed to scan temporal pattern: %w", err)
		}
		patterns = append(patterns, *pattern)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate temporal patterns: %w", err)
	}

	return patterns, nil
}

// DeleteTemporalPatterns removes all temporal buckets.
func (s *Store) DeleteTemporalPatterns(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM temporal_patterns")
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to delete temporal patterns: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to check rows affected: %w", err)
	}

	return int(rows), nil
}

// corruptRecordError marks a row whose JSON payload failed to parse.
// Callers skip the record instead of propagating the failure.
type corruptRecordError struct {
	column string
	err    error
}

func (e *corruptRecordError) Error() string {
	return fmt.Sprintf("corrupt %s: %v", e.column, e.err)
}

func (e *corruptRecordError) Unwrap() error {
	return e.err
}

// scanEntityPattern reads one entity pattern row, converting corrupt JSON
// payloads into a corruptRecordError.
func scanEntityPattern(row rowScanner) (*types.EntityPattern, error) {
	var pattern types.EntityPattern
	var themesJSON, emotionsJSON, urgencyJSON, timesJSON string

	err := row.Scan(
		&pattern.Name,
		&pattern.MentionCount,
		&themesJSON,
		&emotionsJSON,
		&urgencyJSON,
		&timesJSON,
		&pattern.Confidence,
		&pattern.FirstSeen,
		&pattern.LastSeen,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(themesJSON), &pattern.ThemeCorrelations); err != nil {
		return nil, &corruptRecordError{column: "theme_correlations", err: err}
	}
	if err := json.Unmarshal([]byte(emotionsJSON), &pattern.EmotionCorrelations); err != nil {
		return nil, &corruptRecordError{column: "emotion_correlations", err: err}
	}
	if err := json.Unmarshal([]byte(urgencyJSON), &pattern.UrgencyCorrelations); err != nil {
		return nil, &corruptRecordError{column: "urgency_correlations", err: err}
	}
	if err := json.Unmarshal([]byte(timesJSON), &pattern.TimePatterns); err != nil {
		return nil, &corruptRecordError{column: "time_patterns", err: err}
	}

	return &pattern, nil
}

// scanTemporalPattern reads one temporal pattern row, converting corrupt
// JSON payloads into a corruptRecordError.
func scanTemporalPattern(row rowScanner) (*types.TemporalPattern, error) {
	var pattern types.TemporalPattern
	var themesJSON, emotionsJSON string

	err := row.Scan(
		&pattern.TimeBlock,
		&pattern.Weekday,
		&themesJSON,
		&emotionsJSON,
		&pattern.SampleCount,
		&pattern.Confidence,
		&pattern.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(themesJSON), &pattern.CommonThemes); err != nil {
		return nil, &corruptRecordError{column: "common_themes", err: err}
	}
	if err := json.Unmarshal([]byte(emotionsJSON), &pattern.CommonEmotions); err != nil {
		return nil, &corruptRecordError{column: "common_emotions", err: err}
	}

	return &pattern, nil
}

// orEmptyMap substitutes an empty map for nil so columns always hold "{}"
// rather than "null".
func orEmptyMap(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

// orEmptySlice substitutes an empty slice for nil so columns always hold
// "[]" rather than "null".
func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// escapeLike escapes LIKE wildcards in user-supplied needles.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
