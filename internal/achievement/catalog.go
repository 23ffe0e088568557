// Package achievement evaluates a fixed catalog of achievement predicates
// over a user's activity history and records unlocks.
package achievement

import (
	"context"
	"time"

	"github.com/hyperengineering/pathwise/internal/store"
	"github.com/hyperengineering/pathwise/internal/types"
)

// Env is what a predicate may look at.
type Env struct {
	Store  store.ActivityStore
	UserID string
	// Today is midnight of the current day in the evaluator's time zone.
	Today time.Time
}

// Predicate reports whether a user satisfies an achievement's condition.
type Predicate func(ctx context.Context, env Env) (bool, error)

// Definition is a catalog entry together with its predicate.
type Definition struct {
	Key         string
	Title       string
	Description string
	Icon        string
	Condition   string
	Category    types.AchievementCategory
	Predicate   Predicate
}

// Achievement returns the persisted form of the definition.
func (d Definition) Achievement() types.Achievement {
	return types.Achievement{
		Key:         d.Key,
		Title:       d.Title,
		Description: d.Description,
		Icon:        d.Icon,
		Condition:   d.Condition,
		Category:    d.Category,
	}
}

// Catalog returns the built-in achievement definitions.
func Catalog() []Definition {
	return []Definition{
		{
			Key: "first_goal", Title: "First Goal", Icon: "target",
			Description: "Set your first learning goal.",
			Condition:   "goals >= 1",
			Category:    types.CategoryMilestone,
			Predicate:   atLeast(1, func(ctx context.Context, e Env) (int, error) { return e.Store.CountGoals(ctx, e.UserID) }),
		},
		{
			Key: "first_checkin", Title: "First Check-in", Icon: "calendar-check",
			Description: "Log your first study session.",
			Condition:   "checkins >= 1",
			Category:    types.CategoryMilestone,
			Predicate:   atLeast(1, func(ctx context.Context, e Env) (int, error) { return e.Store.CountCheckins(ctx, e.UserID) }),
		},
		{
			Key: "streak_7", Title: "Week Streak", Icon: "flame",
			Description: "Check in seven days in a row.",
			Condition:   "7 consecutive days with a checkin, ending today",
			Category:    types.CategoryStreak,
			Predicate:   Streak(7),
		},
		{
			Key: "streak_30", Title: "Month Streak", Icon: "fire",
			Description: "Check in thirty days in a row.",
			Condition:   "30 consecutive days with a checkin, ending today",
			Category:    types.CategoryStreak,
			Predicate:   Streak(30),
		},
		{
			Key: "complete_goal", Title: "Goal Getter", Icon: "trophy",
			Description: "Complete a goal.",
			Condition:   "completed goals >= 1",
			Category:    types.CategoryMilestone,
			Predicate: atLeast(1, func(ctx context.Context, e Env) (int, error) {
				return e.Store.CountGoalsByStatus(ctx, e.UserID, types.GoalCompleted)
			}),
		},
		{
			Key: "task_10", Title: "Ten Tasks", Icon: "check",
			Description: "Complete ten tasks.",
			Condition:   "completed tasks >= 10",
			Category:    types.CategoryMilestone,
			Predicate:   atLeast(10, completedTasks),
		},
		{
			Key: "task_50", Title: "Fifty Tasks", Icon: "checks",
			Description: "Complete fifty tasks.",
			Condition:   "completed tasks >= 50",
			Category:    types.CategoryMilestone,
			Predicate:   atLeast(50, completedTasks),
		},
		{
			Key: "study_10h", Title: "Ten Hours", Icon: "clock",
			Description: "Study for ten hours in total.",
			Condition:   "checkin minutes >= 600",
			Category:    types.CategoryEffort,
			Predicate:   atLeast(600, studyMinutes),
		},
		{
			Key: "study_100h", Title: "Hundred Hours", Icon: "hourglass",
			Description: "Study for a hundred hours in total.",
			Condition:   "checkin minutes >= 6000",
			Category:    types.CategoryEffort,
			Predicate:   atLeast(6000, studyMinutes),
		},
		{
			Key: "plan_3", Title: "Planner", Icon: "map",
			Description: "Create three learning plans.",
			Condition:   "plans >= 3",
			Category:    types.CategoryMilestone,
			Predicate:   atLeast(3, func(ctx context.Context, e Env) (int, error) { return e.Store.CountPlans(ctx, e.UserID) }),
		},
	}
}

func completedTasks(ctx context.Context, e Env) (int, error) {
	return e.Store.CountCompletedTasks(ctx, e.UserID)
}

func studyMinutes(ctx context.Context, e Env) (int, error) {
	return e.Store.SumCheckinMinutes(ctx, e.UserID)
}

// atLeast builds a threshold predicate over a counter.
func atLeast(threshold int, count func(context.Context, Env) (int, error)) Predicate {
	return func(ctx context.Context, e Env) (bool, error) {
		n, err := count(ctx, e)
		if err != nil {
			return false, err
		}
		return n >= threshold, nil
	}
}
