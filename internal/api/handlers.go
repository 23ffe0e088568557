package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/pathwise/internal/types"
	"github.com/hyperengineering/pathwise/internal/validation"
)

// StatsReader reports aggregate store statistics for the health endpoint.
type StatsReader interface {
	GetStats(ctx context.Context) (*types.StoreStats, error)
}

// TaskToggler sets task completion and recomputes progress.
type TaskToggler interface {
	Toggle(ctx context.Context, userID string, ref types.TaskRef, completed bool) (*types.ToggleResult, error)
}

// PlanAnalyzer produces adaptive suggestions for a plan.
type PlanAnalyzer interface {
	Analyze(ctx context.Context, userID, planID string) (*types.AdaptiveSuggestion, error)
}

// AchievementService evaluates and lists achievements.
type AchievementService interface {
	CheckAndUnlock(ctx context.Context, userID string) ([]types.UnlockedAchievement, error)
	List(ctx context.Context, userID string) ([]types.AchievementWithStatus, int, error)
	Keys() []string
}

// Handler implements the API handlers
type Handler struct {
	stats          StatsReader
	toggler        TaskToggler
	analyzer       PlanAnalyzer
	achievements   AchievementService
	generatorModel string
	apiKey         string
	version        string
}

// NewHandler creates a new Handler.
func NewHandler(s StatsReader, t TaskToggler, a PlanAnalyzer, ach AchievementService, generatorModel, apiKey, version string) *Handler {
	return &Handler{
		stats:          s,
		toggler:        t,
		analyzer:       a,
		achievements:   ach,
		generatorModel: generatorModel,
		apiKey:         apiKey,
		version:        version,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		slog.Error("health stats failed", "component", "api", "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:          "healthy",
		Version:         h.version,
		GeneratorModel:  h.generatorModel,
		GoalCount:       stats.GoalCount,
		PlanCount:       stats.PlanCount,
		AchievementKeys: len(h.achievements.Keys()),
	})
}

// ToggleTask handles PUT /api/v1/tasks/{taskID}/completion
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	completed, ok := decodeToggle(w, r, validation.ValidateULID("task_id", taskID))
	if !ok {
		return
	}
	h.toggle(w, r, types.PersistedTask(taskID), completed)
}

// ToggleAITask handles PUT /api/v1/plans/{planID}/ai-tasks/{taskKey}/completion
func (h *Handler) ToggleAITask(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	taskKey := chi.URLParam(r, "taskKey")
	completed, ok := decodeToggle(w, r,
		validation.ValidateULID("plan_id", planID),
		validation.ValidateTaskKey("task_key", taskKey),
	)
	if !ok {
		return
	}
	h.toggle(w, r, types.VirtualTask(planID, taskKey), completed)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, ref types.TaskRef, completed bool) {
	userID := MustUserIDFromContext(r.Context())
	result, err := h.toggler.Toggle(r.Context(), userID, ref, completed)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decodeToggle parses the toggle body and reports path and body validation
// failures together. It writes the problem response when ok is false.
func decodeToggle(w http.ResponseWriter, r *http.Request, pathErrs ...*validation.ValidationError) (completed bool, ok bool) {
	var req types.ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false, false
	}

	var c validation.Collector
	for _, e := range pathErrs {
		c.Add(e)
	}
	for _, e := range validation.ValidateToggleRequest(req) {
		c.Add(&e)
	}
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return false, false
	}
	return *req.Completed, true
}

// ListAchievements handles GET /api/v1/achievements
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())
	list, count, err := h.achievements.List(r.Context(), userID)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.AchievementsResponse{
		Achievements:  list,
		UnlockedCount: count,
	})
}

// CheckAchievements handles POST /api/v1/achievements/check
func (h *Handler) CheckAchievements(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())
	newly, err := h.achievements.CheckAndUnlock(r.Context(), userID)
	if err != nil {
		MapError(w, r, err)
		return
	}
	if newly == nil {
		newly = []types.UnlockedAchievement{}
	}
	writeJSON(w, http.StatusOK, types.CheckAchievementsResponse{NewlyUnlocked: newly})
}

// AnalyzePlan handles POST /api/v1/plans/{planID}/adaptive/analyze
func (h *Handler) AnalyzePlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	if err := validation.ValidateULID("plan_id", planID); err != nil {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{*err})
		return
	}

	userID := MustUserIDFromContext(r.Context())
	suggestion, err := h.analyzer.Analyze(r.Context(), userID, planID)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "component", "api", "error", err)
	}
}
