package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperengineering/pathwise/internal/types"
	"github.com/oklog/ulid/v2"
)

// UpsertAchievement inserts a catalog entry or refreshes the entry with the
// same key. The id of an existing entry is kept.
func (s *SQLiteStore) UpsertAchievement(ctx context.Context, a types.Achievement) error {
	if a.ID == "" {
		a.ID = ulid.Make().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO achievements (id, key, title, description, icon, condition, category)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			icon = excluded.icon,
			condition = excluded.condition,
			category = excluded.category
	`, a.ID, a.Key, a.Title, a.Description, a.Icon, a.Condition, string(a.Category))
	if err != nil {
		return fmt.Errorf("upsert achievement %s: %w", a.Key, err)
	}
	return nil
}

// ListAchievements returns the persisted catalog ordered by key.
func (s *SQLiteStore) ListAchievements(ctx context.Context) ([]types.Achievement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, title, description, icon, condition, category
		FROM achievements
		ORDER BY key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query achievements: %w", err)
	}
	defer rows.Close()

	var out []types.Achievement
	for rows.Next() {
		var a types.Achievement
		var category string
		if err := rows.Scan(&a.ID, &a.Key, &a.Title, &a.Description, &a.Icon, &a.Condition, &category); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		a.Category = types.AchievementCategory(category)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// ListUserAchievements returns every unlock record of userID.
func (s *SQLiteStore) ListUserAchievements(ctx context.Context, userID string) ([]types.UserAchievement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, achievement_id, unlocked_at
		FROM user_achievements
		WHERE user_id = ?
		ORDER BY unlocked_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user achievements: %w", err)
	}
	defer rows.Close()

	var out []types.UserAchievement
	for rows.Next() {
		var ua types.UserAchievement
		var unlockedAt string
		if err := rows.Scan(&ua.ID, &ua.UserID, &ua.AchievementID, &unlockedAt); err != nil {
			return nil, fmt.Errorf("scan user achievement: %w", err)
		}
		ua.UnlockedAt = parseTime(unlockedAt)
		out = append(out, ua)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// CreateUserAchievement unlocks an achievement for userID. An existing unlock
// yields ErrAlreadyUnlocked and leaves the original record untouched.
func (s *SQLiteStore) CreateUserAchievement(ctx context.Context, userID, achievementID string) (*types.UserAchievement, error) {
	ua := types.UserAchievement{
		ID:            ulid.Make().String(),
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    time.Now().UTC().Truncate(time.Second),
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO user_achievements (id, user_id, achievement_id, unlocked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`, ua.ID, ua.UserID, ua.AchievementID, formatTime(ua.UnlockedAt))
	if err != nil {
		return nil, fmt.Errorf("insert user achievement: %w", err)
	}
	if err := checkAffected(result, ErrAlreadyUnlocked); err != nil {
		return nil, err
	}
	return &ua, nil
}
