package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quietlog/loom/internal/storage"
	"github.com/quietlog/loom/pkg/types"
)

// CreateFact inserts a new user fact.
func (s *Store) CreateFact(ctx context.Context, fact *types.UserFact) error {
	if fact == nil {
		return storage.ErrInvalidInput
	}

	if fact.ID == "" {
		return fmt.Errorf("%w: fact ID is required", storage.ErrInvalidInput)
	}

	text := strings.TrimSpace(fact.Text)
	if text == "" {
		return fmt.Errorf("%w: fact text is required", storage.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > types.MaxFactLength {
		return fmt.Errorf("%w: fact text exceeds %d characters", storage.ErrInvalidInput, types.MaxFactLength)
	}

	if !types.IsValidFactCategory(fact.Category) {
		return fmt.Errorf("%w: unknown fact category %q", storage.ErrInvalidInput, fact.Category)
	}

	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO user_facts (id, fact_text, category, active, created_at) VALUES (?, ?, ?, ?, ?)",
		fact.ID, text, fact.Category, boolToInt(fact.Active), fact.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create fact: %w", err)
	}

	return nil
}

// ListFacts returns facts ordered by creation time ascending.
func (s *Store) ListFacts(ctx context.Context, activeOnly bool) ([]types.UserFact, error) {
	query := "SELECT id, fact_text, category, active, created_at FROM user_facts"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list facts: %w", err)
	}
	defer rows.Close()

	var facts []types.UserFact
	for rows.Next() {
		var fact types.UserFact
		var active int
		if err := rows.Scan(&fact.ID, &fact.Text, &fact.Category, &active, &fact.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		fact.Active = active != 0
		facts = append(facts, fact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate facts: %w", err)
	}

	return facts, nil
}

// DeactivateFact soft-deletes a fact.
func (s *Store) DeactivateFact(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: fact ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, "UPDATE user_facts SET active = 0 WHERE id = ? AND active = 1", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate fact: %w", err)
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

// boolToInt converts a bool to the 0/1 integer SQLite stores.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
