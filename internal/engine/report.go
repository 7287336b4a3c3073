package engine

import (
	"fmt"
	"strings"

	"github.com/quietlog/loom/pkg/types"
)

// Report display floors. The report is stricter than extraction context:
// only patterns that are both frequent and confident are worth showing a
// person about themselves.
const (
	reportMinMentions   = 10
	reportMinConfidence = 0.7
)

const reportTitle = "What Loom Has Learned About You"

// recencyNote explains why long-quiet patterns are missing.
const recencyNote = "Patterns favor recent behavior: people and rhythms you stop writing about fade from view over time."

// timeBlockOrder fixes the display order of time-of-day lines.
var timeBlockOrder = []string{
	types.TimeBlockMorning,
	types.TimeBlockAfternoon,
	types.TimeBlockEvening,
	types.TimeBlockNight,
}

// BuildPatternReport renders the learned-patterns report as plain text from
// already-loaded data. Top-level sections always appear so the report shape
// stays stable; breakdowns with no data are omitted.
func BuildPatternReport(entities []types.EntityPattern, buckets []types.TemporalPattern, insights []string) string {
	var b strings.Builder

	b.WriteString(reportTitle + "\n")
	b.WriteString(strings.Repeat("=", len(reportTitle)) + "\n\n")

	writePeopleSection(&b, entities)
	writeRhythmSection(&b, buckets)
	writeInsightSection(&b, insights)

	b.WriteString(recencyNote + "\n")
	return b.String()
}

// writePeopleSection lists well-established entities, strongest first.
func writePeopleSection(b *strings.Builder, entities []types.EntityPattern) {
	b.WriteString("PEOPLE YOU MENTION OFTEN\n")

	shown := 0
	for _, e := range entities {
		if e.MentionCount < reportMinMentions || e.Confidence <= reportMinConfidence {
			continue
		}
		fmt.Fprintf(b, "  %s\n", formatEntityPattern(&e))
		shown++
	}
	if shown == 0 {
		b.WriteString("  Nothing established yet.\n")
	}
	b.WriteString("\n")
}

// writeRhythmSection renders the temporal breakdowns.
func writeRhythmSection(b *strings.Builder, buckets []types.TemporalPattern) {
	b.WriteString("YOUR WRITING RHYTHMS\n\n")

	index := make(map[[2]string]types.TemporalPattern, len(buckets))
	for _, p := range buckets {
		index[[2]string{p.TimeBlock, p.Weekday}] = p
	}

	var lines []string
	for _, block := range timeBlockOrder {
		if p, ok := index[[2]string{block, types.DayAll}]; ok && p.SampleCount > 0 {
			lines = append(lines, rhythmLine(block, p.SampleCount, p.CommonThemes, p.CommonEmotions))
		}
	}
	writeSubsection(b, "BY TIME OF DAY", lines)

	lines = lines[:0]
	for _, day := range weekdayOrder {
		samples, themes, emotions := aggregateDay(buckets, day)
		if samples > 0 {
			lines = append(lines, rhythmLine(day, samples, themes, emotions))
		}
	}
	writeSubsection(b, "BY DAY OF WEEK", lines)

	lines = lines[:0]
	for _, dayType := range []string{types.DayWeekday, types.DayWeekend} {
		if p, ok := index[[2]string{types.TimeBlockAll, dayType}]; ok && p.SampleCount > 0 {
			lines = append(lines, fmt.Sprintf("  %s: %d entries", dayType, p.SampleCount))
		}
	}
	writeSubsection(b, "WEEKDAY VS WEEKEND", lines)
}

// aggregateDay sums a weekday's exact buckets across time blocks. There is
// no stored per-day aggregate; the exact buckets carry the counts.
func aggregateDay(buckets []types.TemporalPattern, day string) (int, []string, []string) {
	var samples int
	var themes, emotions []string
	for _, p := range buckets {
		if p.Weekday != day || p.TimeBlock == types.TimeBlockAll {
			continue
		}
		samples += p.SampleCount
		for _, t := range p.CommonThemes {
			themes = appendIfAbsent(themes, t)
		}
		for _, e := range p.CommonEmotions {
			emotions = appendIfAbsent(emotions, e)
		}
	}
	return samples, themes, emotions
}

// rhythmLine renders one breakdown line with up to two themes and emotions.
func rhythmLine(label string, samples int, themes, emotions []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s: %d entries", label, samples)
	if t := capList(themes, 2); len(t) > 0 {
		b.WriteString(", usually " + strings.Join(t, " and "))
	}
	if e := capList(emotions, 2); len(e) > 0 {
		b.WriteString(", feeling " + strings.Join(e, " and "))
	}
	return b.String()
}

// writeSubsection prints a header and its lines, or nothing when empty.
func writeSubsection(b *strings.Builder, header string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString(header + "\n")
	for _, line := range lines {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

// writeInsightSection prints insights when there are any.
func writeInsightSection(b *strings.Builder, insights []string) {
	if len(insights) == 0 {
		return
	}
	b.WriteString("💡 INSIGHTS\n")
	for _, insight := range insights {
		fmt.Fprintf(b, "  - %s\n", insight)
	}
	b.WriteString("\n")
}
