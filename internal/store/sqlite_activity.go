package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperengineering/pathwise/internal/types"
	"github.com/oklog/ulid/v2"
)

// CreateCheckin records a study session.
func (s *SQLiteStore) CreateCheckin(ctx context.Context, checkin types.Checkin) (*types.Checkin, error) {
	if checkin.ID == "" {
		checkin.ID = ulid.Make().String()
	}
	checkin.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkins (id, owner_id, date, duration, rating, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, checkin.ID, checkin.OwnerID, checkin.Date, checkin.Duration, checkin.Rating,
		checkin.Note, formatTime(checkin.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert checkin: %w", err)
	}
	return &checkin, nil
}

// RecentCheckinDates returns the dates of the limit most recent checkins,
// newest first. Dates repeat when a day has several checkins.
func (s *SQLiteStore) RecentCheckinDates(ctx context.Context, ownerID string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date FROM checkins
		WHERE owner_id = ?
		ORDER BY date DESC
		LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query checkin dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan checkin date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return dates, nil
}

// CountGoals counts goals created by ownerID.
func (s *SQLiteStore) CountGoals(ctx context.Context, ownerID string) (int, error) {
	return s.count(ctx, "count goals", `SELECT COUNT(*) FROM goals WHERE owner_id = ?`, ownerID)
}

// CountGoalsByStatus counts goals of ownerID in the given status.
func (s *SQLiteStore) CountGoalsByStatus(ctx context.Context, ownerID string, status types.GoalStatus) (int, error) {
	return s.count(ctx, "count goals by status",
		`SELECT COUNT(*) FROM goals WHERE owner_id = ? AND status = ?`, ownerID, string(status))
}

// CountCheckins counts checkins of ownerID.
func (s *SQLiteStore) CountCheckins(ctx context.Context, ownerID string) (int, error) {
	return s.count(ctx, "count checkins", `SELECT COUNT(*) FROM checkins WHERE owner_id = ?`, ownerID)
}

// SumCheckinMinutes returns the cumulative checkin duration of ownerID.
func (s *SQLiteStore) SumCheckinMinutes(ctx context.Context, ownerID string) (int, error) {
	return s.count(ctx, "sum checkin minutes",
		`SELECT COALESCE(SUM(duration), 0) FROM checkins WHERE owner_id = ?`, ownerID)
}

// CountCompletedTasks counts completed persisted tasks of ownerID.
func (s *SQLiteStore) CountCompletedTasks(ctx context.Context, ownerID string) (int, error) {
	return s.count(ctx, "count completed tasks",
		`SELECT COUNT(*) FROM tasks WHERE owner_id = ? AND completed = 1`, ownerID)
}

// CountPlans counts plans of ownerID.
func (s *SQLiteStore) CountPlans(ctx context.Context, ownerID string) (int, error) {
	return s.count(ctx, "count plans", `SELECT COUNT(*) FROM plans WHERE owner_id = ?`, ownerID)
}

func (s *SQLiteStore) count(ctx context.Context, op, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
