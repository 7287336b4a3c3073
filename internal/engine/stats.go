package engine

import (
	"context"
	"fmt"
	"sort"
	"time"
)

const dayLayout = "2006-01-02"

// Stats summarizes journal activity.
type Stats struct {
	TotalEntries  int `json:"total_entries"`
	EntriesToday  int `json:"entries_today"`
	CurrentStreak int `json:"current_streak_days"`
	LongestStreak int `json:"longest_streak_days"`
	QueueDepth    int `json:"queue_depth"`
}

// Stats computes activity statistics from the per-day entry counts.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	total, err := e.store.CountEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	byDay, err := e.store.EntryCountsByDay(ctx)
	if err != nil {
		return nil, fmt.Errorf("entry counts by day: %w", err)
	}

	now := time.Now()
	current, longest := streaks(byDay, now)

	return &Stats{
		TotalEntries:  total,
		EntriesToday:  byDay[now.Format(dayLayout)],
		CurrentStreak: current,
		LongestStreak: longest,
		QueueDepth:    e.QueueDepth(),
	}, nil
}

// streaks computes the current and longest consecutive-day writing runs.
// A quiet today does not break a streak that ran through yesterday.
func streaks(byDay map[string]int, now time.Time) (current, longest int) {
	day := now
	if byDay[day.Format(dayLayout)] == 0 {
		day = day.AddDate(0, 0, -1)
	}
	for byDay[day.Format(dayLayout)] > 0 {
		current++
		day = day.AddDate(0, 0, -1)
	}

	days := make([]string, 0, len(byDay))
	for d, n := range byDay {
		if n > 0 {
			days = append(days, d)
		}
	}
	sort.Strings(days)

	var run int
	var prev time.Time
	for i, d := range days {
		t, err := time.Parse(dayLayout, d)
		if err != nil {
			continue
		}
		if i > 0 && t.Sub(prev) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = t
	}
	return current, longest
}
