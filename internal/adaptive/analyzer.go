package adaptive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperengineering/pathwise/internal/metrics"
	"github.com/hyperengineering/pathwise/internal/store"
	"github.com/hyperengineering/pathwise/internal/types"
)

// DefaultTaskSources counts both task universes.
var DefaultTaskSources = []types.TaskSource{types.TaskSourcePersisted, types.TaskSourceVirtual}

// Analyzer computes plan pace and produces adaptive suggestions.
type Analyzer struct {
	store     store.PlanReader
	generator Generator
	sources   []types.TaskSource
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewAnalyzer creates an Analyzer. Empty sources uses DefaultTaskSources and a
// nil generator runs rules only.
func NewAnalyzer(s store.PlanReader, g Generator, sources []types.TaskSource, m *metrics.Metrics) *Analyzer {
	if len(sources) == 0 {
		sources = DefaultTaskSources
	}
	if g == nil {
		g = RuleGenerator{}
	}
	return &Analyzer{
		store:     s,
		generator: g,
		sources:   sources,
		metrics:   m,
		now:       time.Now,
	}
}

// Analyze returns the suggestion for a plan owned by userID. It fails only
// when the plan cannot be read; generation problems degrade to rules.
func (a *Analyzer) Analyze(ctx context.Context, userID, planID string) (*types.AdaptiveSuggestion, error) {
	plan, err := a.store.GetPlan(ctx, planID, userID)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	tally, err := a.store.TallyTasks(ctx, planID, userID)
	if err != nil {
		return nil, fmt.Errorf("tally tasks: %w", err)
	}

	now := a.now()
	pace := ComputePace(plan, *tally, a.sources, now)

	draft, err := a.generator.Generate(ctx, pace)
	if err != nil || draft == nil {
		slog.Warn("suggestion generator failed, using rules",
			"component", "adaptive",
			"plan_id", planID,
			"error", err,
		)
		draft, _ = RuleGenerator{}.Generate(ctx, pace)
	}

	a.metrics.SuggestionGenerated(draft.GeneratedBy)

	return &types.AdaptiveSuggestion{
		PlanID:         plan.ID,
		Status:         pace.Status,
		CompletionRate: pace.CompletionRate,
		ExpectedRate:   pace.ExpectedRate,
		ElapsedWeeks:   pace.ElapsedWeeks,
		DurationWeeks:  pace.DurationWeeks,
		Suggestion:     draft.Suggestion,
		Adjustments:    draft.Adjustments,
		GeneratedBy:    draft.GeneratedBy,
		GeneratedAt:    now.UTC(),
	}, nil
}
