package store

import (
	"context"

	"github.com/hyperengineering/pathwise/internal/types"
)

// ProgressStore holds the records the progress aggregator reads and writes.
// Every method is scoped to ownerID; records owned by someone else are
// reported as ErrNotFound.
type ProgressStore interface {
	GetGoal(ctx context.Context, goalID, ownerID string) (*types.Goal, error)
	GetPlan(ctx context.Context, planID, ownerID string) (*types.Plan, error)
	ListPlansByGoal(ctx context.Context, goalID, ownerID string) ([]types.Plan, error)
	CountCompletedAITasks(ctx context.Context, planID, ownerID string) (int, error)
	UpdatePlanProgress(ctx context.Context, planID, ownerID string, progress int, version int64) error
	UpdateGoalProgress(ctx context.Context, goalID, ownerID string, progress int, status types.GoalStatus, version int64) error
	GetTask(ctx context.Context, taskID, ownerID string) (*types.Task, error)
	SetTaskCompleted(ctx context.Context, taskID, ownerID string, completed bool) (*types.Task, error)
	UpsertAITaskCompletion(ctx context.Context, planID, ownerID, taskKey string, completed bool) (*types.AITaskCompletion, error)
}

// PlanReader is the read side used by pace analysis.
type PlanReader interface {
	GetPlan(ctx context.Context, planID, ownerID string) (*types.Plan, error)
	TallyTasks(ctx context.Context, planID, ownerID string) (*types.TaskTally, error)
}

// ActivityStore exposes the historical activity achievement predicates
// evaluate, plus the catalog and unlock records.
type ActivityStore interface {
	CountGoals(ctx context.Context, ownerID string) (int, error)
	CountGoalsByStatus(ctx context.Context, ownerID string, status types.GoalStatus) (int, error)
	CountCheckins(ctx context.Context, ownerID string) (int, error)
	RecentCheckinDates(ctx context.Context, ownerID string, limit int) ([]string, error)
	SumCheckinMinutes(ctx context.Context, ownerID string) (int, error)
	CountCompletedTasks(ctx context.Context, ownerID string) (int, error)
	CountPlans(ctx context.Context, ownerID string) (int, error)

	UpsertAchievement(ctx context.Context, a types.Achievement) error
	ListAchievements(ctx context.Context) ([]types.Achievement, error)
	ListUserAchievements(ctx context.Context, userID string) ([]types.UserAchievement, error)
	CreateUserAchievement(ctx context.Context, userID, achievementID string) (*types.UserAchievement, error)
}

// Store defines the interface contract for all pathwise storage operations.
type Store interface {
	ProgressStore
	PlanReader
	ActivityStore

	CreateGoal(ctx context.Context, goal types.Goal) (*types.Goal, error)
	CreatePlan(ctx context.Context, plan types.Plan) (*types.Plan, error)
	CreateTask(ctx context.Context, task types.Task) (*types.Task, error)
	CreateCheckin(ctx context.Context, checkin types.Checkin) (*types.Checkin, error)

	GetStats(ctx context.Context) (*types.StoreStats, error)
	Backup(ctx context.Context, destPath string) error
	Close() error
}
