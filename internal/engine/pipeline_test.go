package engine

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

// stubGenerator routes each prompt to a canned per-task response. Tasks are
// told apart by their TASK header line.
type stubGenerator struct {
	analysis string
	themes   string
	people   string
	urgency  string

	err   error
	delay time.Duration

	mu    sync.Mutex
	calls int
}

func (g *stubGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.err != nil {
		return "", g.err
	}

	switch {
	case strings.Contains(prompt, "TASK: Classify the themes"):
		return g.themes, nil
	case strings.Contains(prompt, "TASK: Extract names of people"):
		return g.people, nil
	case strings.Contains(prompt, "TASK: Rate the urgency"):
		return g.urgency, nil
	default:
		return g.analysis, nil
	}
}

func (g *stubGenerator) GetModel() string { return "stub" }

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestExtractAllTasksSucceed(t *testing.T) {
	gen := &stubGenerator{
		analysis: `{"mood":"negative","emotion":"stressed","tags":["work"],"actions":["send the deck"]}`,
		themes:   `{"themes":["work"]}`,
		people:   `{"people":["Sarah"]}`,
		urgency:  `{"urgency":"medium"}`,
	}
	pipeline := NewExtractionPipeline(gen, time.Second)

	text := "Busy day at the office with Sarah. I need to send the deck. #work"
	result := pipeline.Extract(context.Background(), text, "", []string{"Sarah"})

	if result.Mood != "negative" {
		t.Errorf("Mood = %q", result.Mood)
	}
	if result.Emotion != "stressed" {
		t.Errorf("Emotion = %q", result.Emotion)
	}
	if !reflect.DeepEqual(result.Tags, []string{"work"}) {
		t.Errorf("Tags = %v", result.Tags)
	}
	if !reflect.DeepEqual(result.Actions, []string{"send the deck"}) {
		t.Errorf("Actions = %v", result.Actions)
	}
	if !reflect.DeepEqual(result.Themes, []string{"work"}) {
		t.Errorf("Themes = %v", result.Themes)
	}
	if !reflect.DeepEqual(result.People, []string{"Sarah"}) {
		t.Errorf("People = %v", result.People)
	}
	if result.Urgency != "medium" {
		t.Errorf("Urgency = %q", result.Urgency)
	}
	if gen.callCount() != 4 {
		t.Errorf("generator calls = %d, want 4", gen.callCount())
	}
}

func TestExtractModelDownFallsBackEverywhere(t *testing.T) {
	gen := &stubGenerator{err: errors.New("connection refused")}
	pipeline := NewExtractionPipeline(gen, time.Second)

	text := "Stressed about the deadline. I need to call Sam now. #work"
	result := pipeline.Extract(context.Background(), text, "", nil)

	if result.Emotion != "stressed" {
		t.Errorf("Emotion = %q, want keyword fallback", result.Emotion)
	}
	if result.Mood != "neutral" {
		t.Errorf("Mood = %q, want neutral default", result.Mood)
	}
	if !reflect.DeepEqual(result.Tags, []string{"work"}) {
		t.Errorf("Tags = %v, want text hashtags", result.Tags)
	}
	if !reflect.DeepEqual(result.Actions, []string{"call Sam now"}) {
		t.Errorf("Actions = %v", result.Actions)
	}
	if !reflect.DeepEqual(result.Themes, []string{"work"}) {
		t.Errorf("Themes = %v", result.Themes)
	}
	if !reflect.DeepEqual(result.People, []string{"Sam"}) {
		t.Errorf("People = %v", result.People)
	}
	if result.Urgency != "medium" {
		t.Errorf("Urgency = %q, want medium from deadline cue", result.Urgency)
	}
}

func TestExtractAffirmedEmptyStaysEmpty(t *testing.T) {
	gen := &stubGenerator{
		analysis: `{"mood":"neutral","emotion":"neutral","tags":[],"actions":[]}`,
		themes:   `{"themes":[]}`,
		people:   `{"people":[]}`,
		urgency:  `{"urgency":"none"}`,
	}
	pipeline := NewExtractionPipeline(gen, time.Second)

	// The text has both a theme cue and a mid-sentence name; an affirmed
	// empty answer must still stand.
	result := pipeline.Extract(context.Background(), "Long day at the office with Sarah", "", nil)

	if len(result.Themes) != 0 {
		t.Errorf("Themes = %v, want affirmed empty", result.Themes)
	}
	if len(result.People) != 0 {
		t.Errorf("People = %v, want affirmed empty", result.People)
	}
	if result.Urgency != "none" {
		t.Errorf("Urgency = %q", result.Urgency)
	}
}

func TestExtractRejectedPeopleFallBackToText(t *testing.T) {
	gen := &stubGenerator{
		analysis: `{"mood":"positive","emotion":"happy","tags":[],"actions":[]}`,
		themes:   `{"themes":["leisure"]}`,
		people:   `{"people":["Bob"]}`, // not in the text, not known
		urgency:  `{"urgency":"none"}`,
	}
	pipeline := NewExtractionPipeline(gen, time.Second)

	result := pipeline.Extract(context.Background(), "Coffee with Sarah", "", nil)

	if !reflect.DeepEqual(result.People, []string{"Sarah"}) {
		t.Errorf("People = %v, want [Sarah] from text fallback", result.People)
	}
}

func TestExtractCanonicalizesPeopleSpelling(t *testing.T) {
	gen := &stubGenerator{
		analysis: `{"mood":"neutral","emotion":"neutral","tags":[],"actions":[]}`,
		themes:   `{"themes":[]}`,
		people:   `{"people":["Kerer"]}`,
		urgency:  `{"urgency":"none"}`,
	}
	pipeline := NewExtractionPipeline(gen, time.Second)

	result := pipeline.Extract(context.Background(), "Dinner with Kerer", "", []string{"Kerem"})

	if !reflect.DeepEqual(result.People, []string{"Kerem"}) {
		t.Errorf("People = %v, want canonical [Kerem]", result.People)
	}
}

func TestExtractJunkUrgencyFallsBack(t *testing.T) {
	gen := &stubGenerator{
		analysis: `{"mood":"neutral","emotion":"neutral","tags":[],"actions":[]}`,
		themes:   `{"themes":[]}`,
		people:   `{"people":[]}`,
		urgency:  `{"urgency":"banana"}`, // parses fine, normalizes to nothing
	}
	pipeline := NewExtractionPipeline(gen, time.Second)

	result := pipeline.Extract(context.Background(), "No rush on this one", "", nil)

	if result.Urgency != "low" {
		t.Errorf("Urgency = %q, want keyword fallback low", result.Urgency)
	}
}

func TestExtractUnparseableThemesFallBack(t *testing.T) {
	gen := &stubGenerator{
		analysis: `{"mood":"neutral","emotion":"neutral","tags":[],"actions":[]}`,
		themes:   "the themes here are clearly health related",
		people:   `{"people":[]}`,
		urgency:  `{"urgency":"none"}`,
	}
	pipeline := NewExtractionPipeline(gen, time.Second)

	result := pipeline.Extract(context.Background(), "Spent the evening at the gym", "", nil)

	if !reflect.DeepEqual(result.Themes, []string{"health"}) {
		t.Errorf("Themes = %v, want [health] from cue fallback", result.Themes)
	}
}

func TestExtractSurvivesTaskTimeout(t *testing.T) {
	gen := &stubGenerator{delay: 500 * time.Millisecond}
	pipeline := NewExtractionPipeline(gen, 20*time.Millisecond)

	start := time.Now()
	result := pipeline.Extract(context.Background(), "Quiet night", "", nil)
	elapsed := time.Since(start)

	if result == nil {
		t.Fatal("Extract returned nil")
	}
	if result.Emotion != "neutral" || result.Mood != "neutral" {
		t.Errorf("defaults = emotion %q mood %q", result.Emotion, result.Mood)
	}
	if result.Urgency != "none" {
		t.Errorf("Urgency = %q, want none", result.Urgency)
	}
	// Tasks run concurrently under their own timeouts, so the whole
	// extraction finishes well before four sequential delays would.
	if elapsed > 400*time.Millisecond {
		t.Errorf("Extract took %v, tasks did not time out concurrently", elapsed)
	}
}
