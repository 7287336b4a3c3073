package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/quietlog/loom/internal/llm"
	"github.com/quietlog/loom/pkg/types"
)

// ExtractionPipeline turns one entry's text into a validated extraction
// bundle. Four model tasks run concurrently, each under its own timeout;
// a task that fails, times out, or returns junk degrades to its local
// fallback instead of failing the entry. Extract therefore always returns
// a usable bundle.
type ExtractionPipeline struct {
	generator   llm.TextGenerator
	taskTimeout time.Duration
}

// NewExtractionPipeline creates a pipeline over the given text generator.
func NewExtractionPipeline(generator llm.TextGenerator, taskTimeout time.Duration) *ExtractionPipeline {
	return &ExtractionPipeline{generator: generator, taskTimeout: taskTimeout}
}

// Extract runs the four extraction tasks against (text, contextText) and
// assembles the validated bundle. knownNames carries canonical person
// spellings for the people task.
func (p *ExtractionPipeline) Extract(ctx context.Context, text, contextText string, knownNames []string) *types.ExtractionResult {
	var (
		analysis  *llm.AnalysisResponse
		themes    []string
		themesOK  bool
		people    []string
		peopleOK  bool
		urgency   string
		urgencyOK bool
	)

	var wg sync.WaitGroup
	wg.Add(4)

	go p.runTask(ctx, &wg, "analysis", func(taskCtx context.Context) error {
		raw, err := p.generator.Complete(taskCtx, llm.AnalysisPrompt(text, contextText))
		if err != nil {
			return err
		}
		analysis, err = llm.ParseAnalysisResponse(raw)
		return err
	})

	go p.runTask(ctx, &wg, "themes", func(taskCtx context.Context) error {
		raw, err := p.generator.Complete(taskCtx, llm.ThemesPrompt(text, contextText))
		if err != nil {
			return err
		}
		themes, err = llm.ParseThemesResponse(raw)
		themesOK = err == nil
		return err
	})

	go p.runTask(ctx, &wg, "people", func(taskCtx context.Context) error {
		raw, err := p.generator.Complete(taskCtx, llm.PeoplePrompt(text, contextText))
		if err != nil {
			return err
		}
		people, err = llm.ParsePeopleResponse(raw)
		peopleOK = err == nil
		return err
	})

	go p.runTask(ctx, &wg, "urgency", func(taskCtx context.Context) error {
		raw, err := p.generator.Complete(taskCtx, llm.UrgencyPrompt(text, contextText))
		if err != nil {
			return err
		}
		urgency, err = llm.ParseUrgencyResponse(raw)
		urgencyOK = err == nil
		return err
	})

	wg.Wait()

	return assembleResult(analysis, themes, themesOK, people, peopleOK, urgency, urgencyOK, text, knownNames)
}

// runTask runs one extraction task under its own timeout. Errors and
// panics are logged and contained; the other tasks keep going.
func (p *ExtractionPipeline) runTask(ctx context.Context, wg *sync.WaitGroup, name string, fn func(context.Context) error) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pipeline: %s task panicked: %v", name, r)
		}
	}()

	taskCtx, cancel := context.WithTimeout(ctx, p.taskTimeout)
	defer cancel()

	if err := fn(taskCtx); err != nil {
		log.Printf("pipeline: %s task: %v", name, err)
	}
}

// assembleResult validates each task's output and substitutes fallbacks.
// A task that succeeded with a legitimately empty list stays empty; a task
// whose output was rejected wholesale falls back, same as a failed task.
func assembleResult(analysis *llm.AnalysisResponse, themes []string, themesOK bool, people []string, peopleOK bool, urgency string, urgencyOK bool, text string, knownNames []string) *types.ExtractionResult {
	if analysis == nil {
		analysis = &llm.AnalysisResponse{}
	}

	result := &types.ExtractionResult{
		Mood:    normalizeMood(analysis.Mood),
		Emotion: normalizeEmotion(analysis.Emotion, text),
		Tags:    verifyTags(analysis.Tags, text),
		Actions: sanitizeActions(analysis.Actions),
	}
	if len(result.Actions) == 0 {
		result.Actions = fallbackActions(text)
	}

	switch {
	case themesOK && len(themes) == 0:
		// The model affirmed there are no themes.
	case themesOK:
		result.Themes = filterThemes(themes)
		if len(result.Themes) == 0 {
			result.Themes = fallbackThemes(text)
		}
	default:
		result.Themes = fallbackThemes(text)
	}

	switch {
	case peopleOK && len(people) == 0:
		// The model affirmed nobody is mentioned.
	case peopleOK:
		result.People = validatePeople(people, text, knownNames)
		if len(result.People) == 0 {
			result.People = fallbackPeople(text, knownNames)
		}
	default:
		result.People = fallbackPeople(text, knownNames)
	}

	if urgencyOK {
		result.Urgency = normalizeUrgency(urgency)
	}
	if result.Urgency == "" {
		result.Urgency = fallbackUrgency(text)
	}

	return result
}
