package types

import (
	"time"
)

// GoalStatus represents the lifecycle state of a goal
type GoalStatus string

const (
	GoalActive    GoalStatus = "ACTIVE"
	GoalCompleted GoalStatus = "COMPLETED"
	GoalPaused    GoalStatus = "PAUSED"
	GoalCancelled GoalStatus = "CANCELLED"
)

// Valid reports whether s is one of the known goal states.
func (s GoalStatus) Valid() bool {
	switch s {
	case GoalActive, GoalCompleted, GoalPaused, GoalCancelled:
		return true
	}
	return false
}

// Goal is a learning objective owned by a single user.
// Progress and Status are derived by progress aggregation.
type Goal struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Title     string     `json:"title"`
	Status    GoalStatus `json:"status"`
	Progress  int        `json:"progress"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Plan is a multi-week learning plan attached to a goal. Content holds the
// serialized week entries that make up the plan's virtual task catalog.
type Plan struct {
	ID            string    `json:"id"`
	GoalID        string    `json:"goal_id"`
	OwnerID       string    `json:"owner_id"`
	Title         string    `json:"title"`
	DurationWeeks int       `json:"duration_weeks"`
	Content       string    `json:"content"`
	Progress      int       `json:"progress"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Task is a separately persisted, user-manipulable task.
type Task struct {
	ID        string    `json:"id"`
	PlanID    string    `json:"plan_id"`
	OwnerID   string    `json:"owner_id"`
	Week      int       `json:"week"`
	Day       int       `json:"day"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AITaskCompletion is the completion overlay for a virtual task.
// At most one row exists per (PlanID, TaskKey, OwnerID).
type AITaskCompletion struct {
	ID        string    `json:"id"`
	PlanID    string    `json:"plan_id"`
	OwnerID   string    `json:"owner_id"`
	TaskKey   string    `json:"task_key"`
	Completed bool      `json:"completed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Checkin records a study session on a calendar day.
type Checkin struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Duration  int       `json:"duration"`
	Rating    *int      `json:"rating,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckinDateLayout is the storage layout of Checkin.Date.
const CheckinDateLayout = "2006-01-02"

// AchievementCategory classifies achievements.
type AchievementCategory string

const (
	CategoryMilestone AchievementCategory = "milestone"
	CategoryStreak    AchievementCategory = "streak"
	CategoryEffort    AchievementCategory = "effort"
)

// Achievement is a catalog entry as persisted in the store.
type Achievement struct {
	ID          string              `json:"id"`
	Key         string              `json:"key"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Icon        string              `json:"icon"`
	Condition   string              `json:"condition"`
	Category    AchievementCategory `json:"category"`
}

// UserAchievement marks an achievement as unlocked for a user.
type UserAchievement struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	AchievementID string    `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

// AchievementWithStatus is a catalog entry annotated with a user's unlock state.
type AchievementWithStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// UnlockedAchievement is the summary returned for a newly unlocked achievement.
type UnlockedAchievement struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Icon  string `json:"icon"`
}

// --- Task universes ---

// TaskSource names one of the two task universes.
type TaskSource string

const (
	// TaskSourcePersisted is the universe of Task rows.
	TaskSourcePersisted TaskSource = "persisted"
	// TaskSourceVirtual is the universe of tasks embedded in Plan.Content,
	// tracked through AITaskCompletion rows.
	TaskSourceVirtual TaskSource = "virtual"
)

// Valid reports whether s is a known task source.
func (s TaskSource) Valid() bool {
	return s == TaskSourcePersisted || s == TaskSourceVirtual
}

// TaskRef identifies a task in either universe. TaskID is set for persisted
// tasks; PlanID and TaskKey are set for virtual tasks.
type TaskRef struct {
	Source  TaskSource `json:"source"`
	TaskID  string     `json:"task_id,omitempty"`
	PlanID  string     `json:"plan_id,omitempty"`
	TaskKey string     `json:"task_key,omitempty"`
}

// PersistedTask returns a reference to a Task row.
func PersistedTask(taskID string) TaskRef {
	return TaskRef{Source: TaskSourcePersisted, TaskID: taskID}
}

// VirtualTask returns a reference to a task inside a plan's content.
func VirtualTask(planID, taskKey string) TaskRef {
	return TaskRef{Source: TaskSourceVirtual, PlanID: planID, TaskKey: taskKey}
}

// SourceCount is the total and completed task count of one universe.
type SourceCount struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// TaskTally reports task counts per universe for a single plan.
type TaskTally struct {
	Persisted SourceCount `json:"persisted"`
	Virtual   SourceCount `json:"virtual"`
}

// Sum adds up the counts of the given sources.
func (t TaskTally) Sum(sources []TaskSource) SourceCount {
	var out SourceCount
	for _, s := range sources {
		var c SourceCount
		switch s {
		case TaskSourcePersisted:
			c = t.Persisted
		case TaskSourceVirtual:
			c = t.Virtual
		}
		out.Total += c.Total
		out.Completed += c.Completed
	}
	return out
}

// ToggleResult reports the outcome of a completion toggle. Progress fields are
// nil when the derived aggregates could not be read back.
type ToggleResult struct {
	Ref          TaskRef     `json:"ref"`
	Completed    bool        `json:"completed"`
	PlanID       string      `json:"plan_id"`
	PlanProgress *int        `json:"plan_progress,omitempty"`
	GoalID       string      `json:"goal_id,omitempty"`
	GoalProgress *int        `json:"goal_progress,omitempty"`
	GoalStatus   *GoalStatus `json:"goal_status,omitempty"`
}

// --- Adaptive suggestions ---

// PaceStatus classifies actual progress against the time-elapsed expectation.
type PaceStatus string

const (
	PaceAhead         PaceStatus = "ahead"
	PaceOnTrack       PaceStatus = "on_track"
	PaceFallingBehind PaceStatus = "falling_behind"
)

// AdjustmentAction is the recommended change of load for a week.
type AdjustmentAction string

const (
	ActionReduce   AdjustmentAction = "reduce"
	ActionKeep     AdjustmentAction = "keep"
	ActionIncrease AdjustmentAction = "increase"
)

// Valid reports whether a is a known action.
func (a AdjustmentAction) Valid() bool {
	return a == ActionReduce || a == ActionKeep || a == ActionIncrease
}

// WeekAdjustment is a suggested change for one plan week.
type WeekAdjustment struct {
	Week   int              `json:"week"`
	Action AdjustmentAction `json:"action"`
	Reason string           `json:"reason"`
}

// Generator names which path produced a suggestion.
const (
	GeneratedByAI    = "ai"
	GeneratedByRules = "rules"
)

// AdaptiveSuggestion is the result of pace analysis for a plan.
type AdaptiveSuggestion struct {
	PlanID         string           `json:"plan_id"`
	Status         PaceStatus       `json:"status"`
	CompletionRate int              `json:"completion_rate"`
	ExpectedRate   int              `json:"expected_rate"`
	ElapsedWeeks   int              `json:"elapsed_weeks"`
	DurationWeeks  int              `json:"duration_weeks"`
	Suggestion     string           `json:"suggestion"`
	Adjustments    []WeekAdjustment `json:"adjustments"`
	GeneratedBy    string           `json:"generated_by"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// --- HTTP payloads ---

// ToggleRequest is the body of a completion toggle.
type ToggleRequest struct {
	Completed *bool `json:"completed"`
}

// CheckAchievementsResponse is returned by the achievement check endpoint.
type CheckAchievementsResponse struct {
	NewlyUnlocked []UnlockedAchievement `json:"newly_unlocked"`
}

// AchievementsResponse is returned by the achievement listing endpoint.
type AchievementsResponse struct {
	Achievements  []AchievementWithStatus `json:"achievements"`
	UnlockedCount int                     `json:"unlocked_count"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	GeneratorModel  string `json:"generator_model"`
	GoalCount       int64  `json:"goal_count"`
	PlanCount       int64  `json:"plan_count"`
	AchievementKeys int    `json:"achievement_keys"`
}

// StoreStats contains aggregate store statistics.
type StoreStats struct {
	GoalCount int64 `json:"goal_count"`
	PlanCount int64 `json:"plan_count"`
}
