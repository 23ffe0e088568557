package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hyperengineering/pathwise/internal/types"
)

// ErrInvalidTaskKey is returned when a virtual task key is malformed or does
// not resolve to a task inside the plan's content.
var ErrInvalidTaskKey = errors.New("invalid task key")

// ErrUnknownTaskSource is returned for a TaskRef with an unrecognized source.
var ErrUnknownTaskSource = errors.New("unknown task source")

// Toggle sets the completion state of a task owned by userID, then recomputes
// plan and goal progress. Recompute failures are logged and never undo the
// toggle.
func (a *Aggregator) Toggle(ctx context.Context, userID string, ref types.TaskRef, completed bool) (*types.ToggleResult, error) {
	var planID string

	switch ref.Source {
	case types.TaskSourcePersisted:
		task, err := a.store.SetTaskCompleted(ctx, ref.TaskID, userID, completed)
		if err != nil {
			return nil, fmt.Errorf("set task completed: %w", err)
		}
		planID = task.PlanID

	case types.TaskSourceVirtual:
		plan, err := a.store.GetPlan(ctx, ref.PlanID, userID)
		if err != nil {
			return nil, fmt.Errorf("get plan: %w", err)
		}
		if err := resolveTaskKey(plan, ref.TaskKey); err != nil {
			return nil, err
		}
		if _, err := a.store.UpsertAITaskCompletion(ctx, plan.ID, userID, ref.TaskKey, completed); err != nil {
			return nil, fmt.Errorf("record task completion: %w", err)
		}
		planID = plan.ID

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskSource, ref.Source)
	}

	if err := a.RecalcPlanProgress(ctx, planID, userID); err != nil {
		slog.Warn("progress recompute failed after toggle",
			"component", "progress",
			"plan_id", planID,
			"source", string(ref.Source),
			"error", err,
		)
	}

	result := &types.ToggleResult{
		Ref:       ref,
		Completed: completed,
		PlanID:    planID,
	}
	a.readBack(ctx, userID, result)
	return result, nil
}

func resolveTaskKey(plan *types.Plan, raw string) error {
	key, err := types.ParseTaskKey(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTaskKey, err)
	}
	content, err := types.ParsePlanContent(plan.Content)
	if err != nil {
		return fmt.Errorf("%w: plan content unparsable", ErrInvalidTaskKey)
	}
	if _, ok := content.Lookup(key); !ok {
		return fmt.Errorf("%w: %s not in plan %s", ErrInvalidTaskKey, raw, plan.ID)
	}
	return nil
}

// readBack fills the progress fields from a fresh read. Fields stay nil when
// the read fails.
func (a *Aggregator) readBack(ctx context.Context, userID string, result *types.ToggleResult) {
	plan, err := a.store.GetPlan(ctx, result.PlanID, userID)
	if err != nil {
		return
	}
	planProgress := plan.Progress
	result.PlanProgress = &planProgress
	result.GoalID = plan.GoalID

	goal, err := a.store.GetGoal(ctx, plan.GoalID, userID)
	if err != nil {
		return
	}
	goalProgress := goal.Progress
	goalStatus := goal.Status
	result.GoalProgress = &goalProgress
	result.GoalStatus = &goalStatus
}
