package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hyperengineering/pathwise/internal/types"
	"github.com/oklog/ulid/v2"
)

const taskColumns = `id, plan_id, owner_id, week, day, title, completed, created_at, updated_at`

func scanTask(scanner interface{ Scan(...any) error }) (*types.Task, error) {
	var t types.Task
	var completed int
	var createdAt, updatedAt string
	err := scanner.Scan(
		&t.ID, &t.PlanID, &t.OwnerID, &t.Week, &t.Day, &t.Title,
		&completed, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Completed = completed != 0
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

// CreateTask inserts a persisted task.
func (s *SQLiteStore) CreateTask(ctx context.Context, task types.Task) (*types.Task, error) {
	now := time.Now().UTC()
	if task.ID == "" {
		task.ID = ulid.Make().String()
	}
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.PlanID, task.OwnerID, task.Week, task.Day, task.Title,
		boolToInt(task.Completed), formatTime(task.CreatedAt), formatTime(task.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return &task, nil
}

// GetTask retrieves a task owned by ownerID.
func (s *SQLiteStore) GetTask(ctx context.Context, taskID, ownerID string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = ? AND owner_id = ?
	`, taskID, ownerID)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return task, nil
}

// SetTaskCompleted sets the completion flag of a task owned by ownerID and
// returns the updated task.
func (s *SQLiteStore) SetTaskCompleted(ctx context.Context, taskID, ownerID string, completed bool) (*types.Task, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET completed = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, boolToInt(completed), formatTime(time.Now()), taskID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := checkAffected(result, ErrNotFound); err != nil {
		return nil, err
	}
	return s.GetTask(ctx, taskID, ownerID)
}

// UpsertAITaskCompletion records the completion state of a virtual task.
// Repeated calls for the same (plan, key, owner) update the single overlay row.
func (s *SQLiteStore) UpsertAITaskCompletion(ctx context.Context, planID, ownerID, taskKey string, completed bool) (*types.AITaskCompletion, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_task_completions (id, plan_id, owner_id, task_key, completed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (plan_id, task_key, owner_id)
		DO UPDATE SET completed = excluded.completed, updated_at = excluded.updated_at
	`, ulid.Make().String(), planID, ownerID, taskKey, boolToInt(completed), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("upsert ai task completion: %w", err)
	}

	var c types.AITaskCompletion
	var done int
	var updatedAt string
	err = s.db.QueryRowContext(ctx, `
		SELECT id, plan_id, owner_id, task_key, completed, updated_at
		FROM ai_task_completions
		WHERE plan_id = ? AND task_key = ? AND owner_id = ?
	`, planID, taskKey, ownerID).Scan(&c.ID, &c.PlanID, &c.OwnerID, &c.TaskKey, &done, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("read ai task completion: %w", err)
	}
	c.Completed = done != 0
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

// CountCompletedAITasks counts overlay rows marked completed for the plan.
func (s *SQLiteStore) CountCompletedAITasks(ctx context.Context, planID, ownerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ai_task_completions
		WHERE plan_id = ? AND owner_id = ? AND completed = 1
	`, planID, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed ai tasks: %w", err)
	}
	return n, nil
}

// TallyTasks counts persisted tasks and overlay rows of a plan. The virtual
// total is the number of overlay rows, not the size of the plan content.
func (s *SQLiteStore) TallyTasks(ctx context.Context, planID, ownerID string) (*types.TaskTally, error) {
	var tally types.TaskTally
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(completed), 0)
		FROM tasks
		WHERE plan_id = ? AND owner_id = ?
	`, planID, ownerID).Scan(&tally.Persisted.Total, &tally.Persisted.Completed)
	if err != nil {
		return nil, fmt.Errorf("tally tasks: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(completed), 0)
		FROM ai_task_completions
		WHERE plan_id = ? AND owner_id = ?
	`, planID, ownerID).Scan(&tally.Virtual.Total, &tally.Virtual.Completed)
	if err != nil {
		return nil, fmt.Errorf("tally ai task completions: %w", err)
	}
	return &tally, nil
}
