package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// InsightScheduler refreshes the engine's insight cache on a cron schedule
// so report requests read a warm cache instead of rescanning the window.
type InsightScheduler struct {
	engine   *Engine
	cron     *cron.Cron
	schedule string
}

// NewInsightScheduler validates the cron expression (standard five-field
// syntax) and prepares the scheduler.
func NewInsightScheduler(engine *Engine, schedule string) (*InsightScheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid insight schedule %q: %w", schedule, err)
	}
	return &InsightScheduler{
		engine:   engine,
		cron:     cron.New(),
		schedule: schedule,
	}, nil
}

// Start begins the scheduled refreshes.
func (s *InsightScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.refresh); err != nil {
		return fmt.Errorf("schedule insight refresh: %w", err)
	}
	s.cron.Start()
	log.Printf("insight refresh scheduled: %s", s.schedule)
	return nil
}

// Stop halts future refreshes. One already running finishes on its own.
func (s *InsightScheduler) Stop() {
	s.cron.Stop()
	log.Println("insight scheduler stopped")
}

func (s *InsightScheduler) refresh() {
	insights, err := s.engine.RefreshInsights(context.Background())
	if err != nil {
		log.Printf("ERROR: scheduled insight refresh failed: %v", err)
		return
	}
	log.Printf("insight cache refreshed: %d insights", len(insights))
}
