package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/quietlog/loom/internal/storage"
	"github.com/quietlog/loom/pkg/types"
)

// factCategoryCues classifies a fact by the first cue table that matches.
// People cues run before work cues so "My manager is Sarah" lands in
// people even though "manager" smells like work.
var factCategoryCues = []struct {
	category types.FactCategory
	cues     []string
}{
	{types.FactPeople, []string{
		"manager", "colleague", "friend", "wife", "husband", "partner",
		"sister", "brother", "mom", "dad", "name is", "boss",
	}},
	{types.FactWork, []string{"work", "job", "company", "office"}},
	{types.FactLocation, []string{"live in", "moved to", "based in", "from"}},
	{types.FactPersonal, []string{"hobby", "like", "love", "enjoy", "play"}},
}

// Relationship phrasings that carry a person's name, in both directions:
// "my manager is Sarah" and "Sarah is my colleague".
var (
	relationNameAfter  = regexp.MustCompile(`(?:manager|boss|colleague|friend|wife|husband|partner|sister|brother|mom|dad|name)\s+is\s+([A-Z][\w'-]+)`)
	relationNameBefore = regexp.MustCompile(`([A-Z][\w'-]+)\s+is\s+my\s+(?:manager|boss|colleague|friend|wife|husband|partner|sister|brother)`)
)

// CategorizeFact derives a fact's category from its text.
func CategorizeFact(text string) types.FactCategory {
	lower := strings.ToLower(text)
	for _, entry := range factCategoryCues {
		for _, cue := range entry.cues {
			if strings.Contains(lower, cue) {
				return entry.category
			}
		}
	}
	return types.FactOther
}

// FactService manages user-declared facts.
type FactService struct {
	store storage.FactStore
}

// NewFactService creates a fact service over the given store.
func NewFactService(store storage.FactStore) *FactService {
	return &FactService{store: store}
}

// AddFact validates, categorizes, and stores a fact.
func (s *FactService) AddFact(ctx context.Context, text string) (*types.UserFact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("fact text is empty: %w", storage.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > types.MaxFactLength {
		return nil, fmt.Errorf("fact text exceeds %d characters: %w", types.MaxFactLength, storage.ErrInvalidInput)
	}

	fact := &types.UserFact{
		ID:        uuid.NewString(),
		Text:      text,
		Category:  CategorizeFact(text),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateFact(ctx, fact); err != nil {
		return nil, err
	}
	return fact, nil
}

// ActiveFacts returns all active facts, oldest first.
func (s *FactService) ActiveFacts(ctx context.Context) ([]types.UserFact, error) {
	return s.store.ListFacts(ctx, true)
}

// AllFacts returns every fact including deactivated ones, oldest first.
func (s *FactService) AllFacts(ctx context.Context) ([]types.UserFact, error) {
	return s.store.ListFacts(ctx, false)
}

// RemoveFact soft-deletes a fact.
func (s *FactService) RemoveFact(ctx context.Context, id string) error {
	return s.store.DeactivateFact(ctx, id)
}

// namesFromFacts pulls person names out of people-category facts using the
// relationship phrasings. Order-preserving, deduped.
func namesFromFacts(facts []types.UserFact) []string {
	var names []string
	seen := make(map[string]bool)
	keep := func(name string) {
		key := strings.ToLower(name)
		if name != "" && !seen[key] {
			seen[key] = true
			names = append(names, name)
		}
	}

	for _, fact := range facts {
		if fact.Category != types.FactPeople {
			continue
		}
		for _, m := range relationNameAfter.FindAllStringSubmatch(fact.Text, -1) {
			keep(m[1])
		}
		for _, m := range relationNameBefore.FindAllStringSubmatch(fact.Text, -1) {
			keep(m[1])
		}
	}
	return names
}
