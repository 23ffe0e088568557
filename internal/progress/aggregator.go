// Package progress derives plan and goal completion percentages from task
// completion events.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/hyperengineering/pathwise/internal/metrics"
	"github.com/hyperengineering/pathwise/internal/store"
	"github.com/hyperengineering/pathwise/internal/types"
)

// DefaultMaxAttempts bounds the re-read/recompute loop on version conflicts.
const DefaultMaxAttempts = 3

// Aggregator recomputes plan and goal progress. Progress is always derived
// from plan content and completion overlay rows, never from stored values.
type Aggregator struct {
	store       store.ProgressStore
	maxAttempts int
	metrics     *metrics.Metrics
}

// NewAggregator creates an Aggregator. maxAttempts below 1 uses DefaultMaxAttempts.
func NewAggregator(s store.ProgressStore, maxAttempts int, m *metrics.Metrics) *Aggregator {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Aggregator{
		store:       s,
		maxAttempts: maxAttempts,
		metrics:     m,
	}
}

// Percent returns round(completed/total*100) clamped to [0,100].
// A zero total yields 0.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return clampPercent(math.Round(float64(completed) / float64(total) * 100))
}

func clampPercent(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v)
}

// VirtualTaskCount returns the number of tasks in the plan's content.
// Unparsable content counts as zero tasks.
func VirtualTaskCount(plan *types.Plan) int {
	content, err := types.ParsePlanContent(plan.Content)
	if err != nil {
		slog.Warn("plan content unparsable, counting zero tasks",
			"component", "progress",
			"plan_id", plan.ID,
			"error", err,
		)
		return 0
	}
	return content.TotalTasks()
}

// RecalcPlanProgress recomputes the progress of a plan owned by userID and
// cascades to its goal. A missing plan or a plan without virtual tasks is a
// no-op.
func (a *Aggregator) RecalcPlanProgress(ctx context.Context, planID, userID string) error {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		plan, err := a.store.GetPlan(ctx, planID, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get plan: %w", err)
		}

		total := VirtualTaskCount(plan)
		if total == 0 {
			return nil
		}

		completed, err := a.store.CountCompletedAITasks(ctx, planID, userID)
		if err != nil {
			return fmt.Errorf("count completed tasks: %w", err)
		}
		progress := Percent(completed, total)

		if progress != plan.Progress {
			err = a.store.UpdatePlanProgress(ctx, planID, userID, progress, plan.Version)
			if errors.Is(err, store.ErrVersionConflict) {
				a.metrics.VersionConflict("plan")
				slog.Debug("plan progress version conflict, retrying",
					"component", "progress",
					"plan_id", planID,
					"attempt", attempt,
				)
				continue
			}
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("update plan progress: %w", err)
			}
		}

		return a.RecalcGoalProgress(ctx, plan.GoalID, userID)
	}

	a.metrics.RecalcFailed("plan")
	return fmt.Errorf("recalc plan %s after %d attempts: %w", planID, a.maxAttempts, store.ErrVersionConflict)
}

// RecalcGoalProgress sets a goal's progress to the unweighted mean of its
// plans' completion percentages. Plans without virtual tasks are excluded; a
// goal with no qualifying plan is left untouched. Reaching 100 marks the goal
// COMPLETED, and COMPLETED is never reverted here.
func (a *Aggregator) RecalcGoalProgress(ctx context.Context, goalID, userID string) error {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		goal, err := a.store.GetGoal(ctx, goalID, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get goal: %w", err)
		}

		progress, ok, err := a.goalPercent(ctx, goalID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		status := goal.Status
		if progress >= 100 {
			status = types.GoalCompleted
		}
		if progress == goal.Progress && status == goal.Status {
			return nil
		}

		err = a.store.UpdateGoalProgress(ctx, goalID, userID, progress, status, goal.Version)
		if errors.Is(err, store.ErrVersionConflict) {
			a.metrics.VersionConflict("goal")
			slog.Debug("goal progress version conflict, retrying",
				"component", "progress",
				"goal_id", goalID,
				"attempt", attempt,
			)
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("update goal progress: %w", err)
		}
		return nil
	}

	a.metrics.RecalcFailed("goal")
	return fmt.Errorf("recalc goal %s after %d attempts: %w", goalID, a.maxAttempts, store.ErrVersionConflict)
}

// goalPercent averages per-plan ratios. ok is false when no plan qualifies.
func (a *Aggregator) goalPercent(ctx context.Context, goalID, userID string) (int, bool, error) {
	plans, err := a.store.ListPlansByGoal(ctx, goalID, userID)
	if err != nil {
		return 0, false, fmt.Errorf("list plans: %w", err)
	}

	var sum float64
	qualifying := 0
	for i := range plans {
		total := VirtualTaskCount(&plans[i])
		if total == 0 {
			continue
		}
		completed, err := a.store.CountCompletedAITasks(ctx, plans[i].ID, userID)
		if err != nil {
			return 0, false, fmt.Errorf("count completed tasks for plan %s: %w", plans[i].ID, err)
		}
		sum += float64(completed) / float64(total) * 100
		qualifying++
	}

	if qualifying == 0 {
		return 0, false, nil
	}
	return clampPercent(math.Round(sum / float64(qualifying))), true, nil
}
