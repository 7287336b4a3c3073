package engine

import (
	"math"
	"reflect"
	"testing"
)

func TestSimilarityRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"kerer", "kerem", 0.8},
		{"kere", "kerem", 8.0 / 9.0},
		{"karen", "kerem", 0.6},
		{"sarah", "sarah", 1.0},
		{"", "", 1.0},
		{"abc", "xyz", 0},
	}
	for _, tc := range cases {
		got := similarityRatio(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("similarityRatio(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestResolveKnownName(t *testing.T) {
	known := []string{"Sarah", "Kerem"}

	if got := resolveKnownName("sarah", known); got != "Sarah" {
		t.Errorf("exact match = %q, want canonical Sarah", got)
	}
	if got := resolveKnownName("Kerer", known); got != "Kerem" {
		t.Errorf("fuzzy match = %q, want Kerem", got)
	}
	// 0.75 similarity sits under the threshold.
	if got := resolveKnownName("Ker", known); got != "" {
		t.Errorf("weak match resolved to %q", got)
	}
	if got := resolveKnownName("Karen", known); got != "" {
		t.Errorf("Karen resolved to %q, want no match", got)
	}
	// Length gap beyond the window skips fuzzy comparison entirely.
	if got := resolveKnownName("Alexanderson", []string{"Alex"}); got != "" {
		t.Errorf("length-gapped match resolved to %q", got)
	}
}

func TestValidatePeople(t *testing.T) {
	known := []string{"Kerem", "Sarah"}

	// A misspelling resolves to the canonical spelling.
	got := validatePeople([]string{"Kerer"}, "Coffee with Kerer", known)
	if !reflect.DeepEqual(got, []string{"Kerem"}) {
		t.Errorf("misspelling = %v, want [Kerem]", got)
	}

	// Casing normalizes to the known spelling regardless of the text.
	got = validatePeople([]string{"sarah"}, "note without the name", known)
	if !reflect.DeepEqual(got, []string{"Sarah"}) {
		t.Errorf("case fix = %v, want [Sarah]", got)
	}

	// A new name is accepted when the text carries it mid-sentence,
	// using the text's spelling.
	got = validatePeople([]string{"priya"}, "Lunch with Priya tomorrow", nil)
	if !reflect.DeepEqual(got, []string{"Priya"}) {
		t.Errorf("new name = %v, want [Priya]", got)
	}

	// A claimed name absent from the text is dropped.
	if got := validatePeople([]string{"Bob"}, "quiet day at home", nil); len(got) != 0 {
		t.Errorf("hallucinated name kept: %v", got)
	}

	// Sentence-initial occurrences alone do not establish a new person.
	if got := validatePeople([]string{"Veronica"}, "Veronica called me.", nil); len(got) != 0 {
		t.Errorf("sentence-initial name kept: %v", got)
	}

	// Stoplisted words are never people.
	if got := validatePeople([]string{"Monday"}, "Meeting on Monday morning", nil); len(got) != 0 {
		t.Errorf("stoplisted word kept: %v", got)
	}

	// Two spellings of one person collapse to a single entry.
	got = validatePeople([]string{"Kerer", "Kerem"}, "Dinner with Kerem", known)
	if !reflect.DeepEqual(got, []string{"Kerem"}) {
		t.Errorf("duplicate person = %v, want [Kerem]", got)
	}

	// Cap at five people.
	remote := []string{"Ana", "Ben", "Cleo", "Dev", "Elif", "Filip"}
	got = validatePeople(remote, "Party with Ana, Ben, Cleo, Dev, Elif and Filip", nil)
	if len(got) != 5 {
		t.Errorf("people cap = %d: %v", len(got), got)
	}
}

func TestFallbackPeople(t *testing.T) {
	// Mid-sentence capitalized tokens pass, sentence openers do not.
	got := fallbackPeople("Had lunch with Sarah and Tom. Yesterday was long.", nil)
	if !reflect.DeepEqual(got, []string{"Sarah", "Tom"}) {
		t.Errorf("fallbackPeople = %v, want [Sarah Tom]", got)
	}

	// Known names resolve even at sentence starts and even misspelled.
	got = fallbackPeople("Sarha texted me", []string{"Sarah"})
	if !reflect.DeepEqual(got, []string{"Sarah"}) {
		t.Errorf("known name at sentence start = %v, want [Sarah]", got)
	}

	// Stoplisted capitalized words stay out.
	if got := fallbackPeople("Call me on Tuesday please", nil); len(got) != 0 {
		t.Errorf("stoplisted fallback = %v", got)
	}

	if got := fallbackPeople("nothing capitalized here", nil); len(got) != 0 {
		t.Errorf("no-name fallback = %v", got)
	}
}

func TestTokenizeForPeople(t *testing.T) {
	tokens := tokenizeForPeople("Hello Sam. Bye (Tom)!\nNew line")

	want := []struct {
		word    string
		initial bool
	}{
		{"Hello", true},
		{"Sam", false},
		{"Bye", true},
		{"Tom", false},
		{"New", true},
		{"line", false},
	}
	if len(tokens) != len(want) {
		t.Fatalf("token count = %d, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, w := range want {
		if tokens[i].word != w.word || tokens[i].sentenceInitial != w.initial {
			t.Errorf("token[%d] = %+v, want %+v", i, tokens[i], w)
		}
	}
}
