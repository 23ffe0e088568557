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

const goalColumns = `id, owner_id, title, status, progress, version, created_at, updated_at`

const planColumns = `id, goal_id, owner_id, title, duration_weeks, content, progress, version, created_at, updated_at`

func scanGoal(scanner interface{ Scan(...any) error }) (*types.Goal, error) {
	var g types.Goal
	var status, createdAt, updatedAt string
	if err := scanner.Scan(&g.ID, &g.OwnerID, &g.Title, &status, &g.Progress, &g.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	g.Status = types.GoalStatus(status)
	g.CreatedAt = parseTime(createdAt)
	g.UpdatedAt = parseTime(updatedAt)
	return &g, nil
}

func scanPlan(scanner interface{ Scan(...any) error }) (*types.Plan, error) {
	var p types.Plan
	var createdAt, updatedAt string
	err := scanner.Scan(
		&p.ID, &p.GoalID, &p.OwnerID, &p.Title, &p.DurationWeeks,
		&p.Content, &p.Progress, &p.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// CreateGoal inserts a goal. ID and timestamps are assigned when empty.
func (s *SQLiteStore) CreateGoal(ctx context.Context, goal types.Goal) (*types.Goal, error) {
	now := time.Now().UTC()
	if goal.ID == "" {
		goal.ID = ulid.Make().String()
	}
	if goal.Status == "" {
		goal.Status = types.GoalActive
	}
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = now
	}
	goal.UpdatedAt = now
	goal.Version = 1

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, goal.ID, goal.OwnerID, goal.Title, string(goal.Status), goal.Progress, goal.Version,
		formatTime(goal.CreatedAt), formatTime(goal.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	return &goal, nil
}

// GetGoal retrieves a goal owned by ownerID.
func (s *SQLiteStore) GetGoal(ctx context.Context, goalID, ownerID string) (*types.Goal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+goalColumns+`
		FROM goals
		WHERE id = ? AND owner_id = ?
	`, goalID, ownerID)

	goal, err := scanGoal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan goal: %w", err)
	}
	return goal, nil
}

// UpdateGoalProgress writes progress and status if the stored version still
// equals version, and bumps the version. A missing goal yields ErrNotFound;
// a stale version yields ErrVersionConflict.
func (s *SQLiteStore) UpdateGoalProgress(ctx context.Context, goalID, ownerID string, progress int, status types.GoalStatus, version int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE goals
		SET progress = ?, status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND owner_id = ? AND version = ?
	`, progress, string(status), formatTime(time.Now()), goalID, ownerID, version)
	if err != nil {
		return fmt.Errorf("update goal progress: %w", err)
	}
	if err := checkAffected(result, ErrVersionConflict); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return s.conflictOrMissing(ctx, "goals", goalID, ownerID)
		}
		return err
	}
	return nil
}

// CreatePlan inserts a plan. ID and timestamps are assigned when empty.
func (s *SQLiteStore) CreatePlan(ctx context.Context, plan types.Plan) (*types.Plan, error) {
	now := time.Now().UTC()
	if plan.ID == "" {
		plan.ID = ulid.Make().String()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	plan.Version = 1

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plans (`+planColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, plan.ID, plan.GoalID, plan.OwnerID, plan.Title, plan.DurationWeeks, plan.Content,
		plan.Progress, plan.Version, formatTime(plan.CreatedAt), formatTime(plan.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert plan: %w", err)
	}
	return &plan, nil
}

// GetPlan retrieves a plan owned by ownerID.
func (s *SQLiteStore) GetPlan(ctx context.Context, planID, ownerID string) (*types.Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE id = ? AND owner_id = ?
	`, planID, ownerID)

	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	return plan, nil
}

// ListPlansByGoal returns every plan of the goal owned by ownerID, oldest first.
func (s *SQLiteStore) ListPlansByGoal(ctx context.Context, goalID, ownerID string) ([]types.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE goal_id = ? AND owner_id = ?
		ORDER BY created_at ASC, id ASC
	`, goalID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []types.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return plans, nil
}

// UpdatePlanProgress writes progress if the stored version still equals
// version, and bumps the version.
func (s *SQLiteStore) UpdatePlanProgress(ctx context.Context, planID, ownerID string, progress int, version int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE plans
		SET progress = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND owner_id = ? AND version = ?
	`, progress, formatTime(time.Now()), planID, ownerID, version)
	if err != nil {
		return fmt.Errorf("update plan progress: %w", err)
	}
	if err := checkAffected(result, ErrVersionConflict); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return s.conflictOrMissing(ctx, "plans", planID, ownerID)
		}
		return err
	}
	return nil
}

// conflictOrMissing distinguishes a stale version from a row that is gone.
// table is always a package constant.
func (s *SQLiteStore) conflictOrMissing(ctx context.Context, table, id, ownerID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM "+table+" WHERE id = ? AND owner_id = ?", id, ownerID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check %s row: %w", table, err)
	}
	return ErrVersionConflict
}
