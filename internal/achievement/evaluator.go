package achievement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hyperengineering/pathwise/internal/metrics"
	"github.com/hyperengineering/pathwise/internal/store"
	"github.com/hyperengineering/pathwise/internal/types"
)

// Evaluator seeds the catalog and unlocks achievements whose predicates hold.
type Evaluator struct {
	store   store.ActivityStore
	catalog []Definition
	loc     *time.Location
	metrics *metrics.Metrics
	now     func() time.Time

	mu     sync.Mutex
	seeded bool
}

// NewEvaluator creates an Evaluator over catalog. Streak days are computed in
// loc; a nil loc means UTC.
func NewEvaluator(s store.ActivityStore, catalog []Definition, loc *time.Location, m *metrics.Metrics) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &Evaluator{
		store:   s,
		catalog: catalog,
		loc:     loc,
		metrics: m,
		now:     time.Now,
	}
}

// Seed upserts every catalog entry by key. It is idempotent.
func (e *Evaluator) Seed(ctx context.Context) error {
	for _, def := range e.catalog {
		if err := e.store.UpsertAchievement(ctx, def.Achievement()); err != nil {
			return fmt.Errorf("seed achievements: %w", err)
		}
	}

	e.mu.Lock()
	e.seeded = true
	e.mu.Unlock()
	return nil
}

// ensureSeeded seeds once per process. A failed seed is retried on the next call.
func (e *Evaluator) ensureSeeded(ctx context.Context) error {
	e.mu.Lock()
	done := e.seeded
	e.mu.Unlock()
	if done {
		return nil
	}
	return e.Seed(ctx)
}

// CheckAndUnlock evaluates every achievement the user has not unlocked yet
// and records the ones whose predicate holds. Failing predicates are logged
// and skipped. An unlock lost to a concurrent check is not reported.
func (e *Evaluator) CheckAndUnlock(ctx context.Context, userID string) ([]types.UnlockedAchievement, error) {
	if err := e.ensureSeeded(ctx); err != nil {
		return nil, err
	}

	byKey, err := e.persistedByKey(ctx)
	if err != nil {
		return nil, err
	}
	unlocked, err := e.unlockedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	env := Env{
		Store:  e.store,
		UserID: userID,
		Today:  midnight(e.now(), e.loc),
	}

	newly := []types.UnlockedAchievement{}
	for _, def := range e.catalog {
		a, ok := byKey[def.Key]
		if !ok {
			slog.Warn("achievement missing from store",
				"component", "achievement",
				"key", def.Key,
			)
			continue
		}
		if _, done := unlocked[a.ID]; done {
			continue
		}

		ok, err := e.evaluate(ctx, def, env)
		if err != nil {
			slog.Warn("achievement predicate failed",
				"component", "achievement",
				"key", def.Key,
				"user_id", userID,
				"error", err,
			)
			e.metrics.PredicateFailed(def.Key)
			continue
		}
		if !ok {
			continue
		}

		if _, err := e.store.CreateUserAchievement(ctx, userID, a.ID); err != nil {
			if !errors.Is(err, store.ErrAlreadyUnlocked) {
				slog.Warn("failed to record unlock",
					"component", "achievement",
					"key", def.Key,
					"user_id", userID,
					"error", err,
				)
			}
			continue
		}

		e.metrics.AchievementUnlocked(def.Key)
		slog.Info("achievement unlocked",
			"component", "achievement",
			"key", def.Key,
			"user_id", userID,
		)
		newly = append(newly, types.UnlockedAchievement{Key: a.Key, Title: a.Title, Icon: a.Icon})
	}

	return newly, nil
}

// evaluate runs a predicate, turning a panic into an error.
func (e *Evaluator) evaluate(ctx context.Context, def Definition, env Env) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("predicate panic: %v", r)
		}
	}()
	if def.Predicate == nil {
		return false, errors.New("no predicate")
	}
	return def.Predicate(ctx, env)
}

// List returns every catalog achievement annotated with the user's unlock
// state, in catalog order, and the number unlocked.
func (e *Evaluator) List(ctx context.Context, userID string) ([]types.AchievementWithStatus, int, error) {
	if err := e.ensureSeeded(ctx); err != nil {
		return nil, 0, err
	}

	byKey, err := e.persistedByKey(ctx)
	if err != nil {
		return nil, 0, err
	}
	unlocked, err := e.unlockedIDs(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	out := make([]types.AchievementWithStatus, 0, len(e.catalog))
	count := 0
	for _, def := range e.catalog {
		a, ok := byKey[def.Key]
		if !ok {
			continue
		}
		item := types.AchievementWithStatus{Achievement: a}
		if at, done := unlocked[a.ID]; done {
			unlockedAt := at
			item.Unlocked = true
			item.UnlockedAt = &unlockedAt
			count++
		}
		out = append(out, item)
	}
	return out, count, nil
}

// Keys returns the catalog keys in order.
func (e *Evaluator) Keys() []string {
	keys := make([]string, len(e.catalog))
	for i, def := range e.catalog {
		keys[i] = def.Key
	}
	return keys
}

func (e *Evaluator) persistedByKey(ctx context.Context) (map[string]types.Achievement, error) {
	list, err := e.store.ListAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	byKey := make(map[string]types.Achievement, len(list))
	for _, a := range list {
		byKey[a.Key] = a
	}
	return byKey, nil
}

func (e *Evaluator) unlockedIDs(ctx context.Context, userID string) (map[string]time.Time, error) {
	list, err := e.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list unlocked achievements: %w", err)
	}
	ids := make(map[string]time.Time, len(list))
	for _, ua := range list {
		ids[ua.AchievementID] = ua.UnlockedAt
	}
	return ids, nil
}
