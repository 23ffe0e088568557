package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/pathwise/internal/progress"
	"github.com/hyperengineering/pathwise/internal/store"
	"github.com/hyperengineering/pathwise/internal/types"
)

// --- Mock Implementations for Testing ---

// mockStats implements StatsReader for testing
type mockStats struct {
	stats *types.StoreStats
	err   error
}

func (m *mockStats) GetStats(ctx context.Context) (*types.StoreStats, error) {
	return m.stats, m.err
}

// mockToggler implements TaskToggler for testing
type mockToggler struct {
	err           error
	callCount     int
	lastUser      string
	lastRef       types.TaskRef
	lastCompleted bool
}

func (m *mockToggler) Toggle(ctx context.Context, userID string, ref types.TaskRef, completed bool) (*types.ToggleResult, error) {
	m.callCount++
	m.lastUser = userID
	m.lastRef = ref
	m.lastCompleted = completed
	if m.err != nil {
		return nil, m.err
	}
	planProgress := 25
	planID := ref.PlanID
	if planID == "" {
		planID = "01HPLAN0000000000000000000"
	}
	return &types.ToggleResult{Ref: ref, Completed: completed, PlanID: planID, PlanProgress: &planProgress}, nil
}

// mockAnalyzer implements PlanAnalyzer for testing
type mockAnalyzer struct {
	err       error
	callCount int
	lastUser  string
	lastPlan  string
}

func (m *mockAnalyzer) Analyze(ctx context.Context, userID, planID string) (*types.AdaptiveSuggestion, error) {
	m.callCount++
	m.lastUser = userID
	m.lastPlan = planID
	if m.err != nil {
		return nil, m.err
	}
	return &types.AdaptiveSuggestion{
		PlanID:         planID,
		Status:         types.PaceFallingBehind,
		CompletionRate: 20,
		ExpectedRate:   50,
		ElapsedWeeks:   2,
		DurationWeeks:  4,
		Suggestion:     "Trim the next two weeks.",
		Adjustments: []types.WeekAdjustment{
			{Week: 3, Action: types.ActionReduce, Reason: "catch up"},
			{Week: 4, Action: types.ActionReduce, Reason: "catch up"},
		},
		GeneratedBy: types.GeneratedByRules,
		GeneratedAt: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}, nil
}

// mockAchievements implements AchievementService for testing
type mockAchievements struct {
	newly    []types.UnlockedAchievement
	list     []types.AchievementWithStatus
	count    int
	err      error
	lastUser string
}

func (m *mockAchievements) CheckAndUnlock(ctx context.Context, userID string) ([]types.UnlockedAchievement, error) {
	m.lastUser = userID
	return m.newly, m.err
}

func (m *mockAchievements) List(ctx context.Context, userID string) ([]types.AchievementWithStatus, int, error) {
	m.lastUser = userID
	return m.list, m.count, m.err
}

func (m *mockAchievements) Keys() []string {
	return []string{"first_goal", "first_checkin"}
}

type testDeps struct {
	stats        *mockStats
	toggler      *mockToggler
	analyzer     *mockAnalyzer
	achievements *mockAchievements
}

func newTestDeps() *testDeps {
	return &testDeps{
		stats:        &mockStats{stats: &types.StoreStats{GoalCount: 3, PlanCount: 5}},
		toggler:      &mockToggler{},
		analyzer:     &mockAnalyzer{},
		achievements: &mockAchievements{},
	}
}

// newTestRouter wires the mocks behind the real router.
func newTestRouter(d *testDeps, limiter *UserRateLimiter) http.Handler {
	h := NewHandler(d.stats, d.toggler, d.analyzer, d.achievements, "gpt-4o-mini", testAPIKey, "1.0.0")
	return NewRouter(h, nil, nil, limiter)
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set(UserIDHeader, "user-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func problemOf(t *testing.T, w *httptest.ResponseRecorder) ProblemWithErrors {
	t.Helper()
	var p ProblemWithErrors
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("response is not a problem document: %v\n%s", err, w.Body.String())
	}
	return p
}

// --- Health Endpoint Tests ---

func TestHealth_ReturnsHealthyStatus(t *testing.T) {
	router := newTestRouter(newTestDeps(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp types.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" || resp.Version != "1.0.0" || resp.GeneratorModel != "gpt-4o-mini" {
		t.Errorf("health = %+v", resp)
	}
	if resp.GoalCount != 3 || resp.PlanCount != 5 || resp.AchievementKeys != 2 {
		t.Errorf("counts = %+v", resp)
	}
}

func TestHealth_StatsError(t *testing.T) {
	d := newTestDeps()
	d.stats.err = errors.New("db closed")
	router := newTestRouter(d, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "db closed") {
		t.Error("internal error leaked to client")
	}
}

// --- Toggle Tests ---

func TestToggleTask_Persisted(t *testing.T) {
	d := newTestDeps()
	router := newTestRouter(d, nil)
	taskID := ulid.Make().String()

	w := doRequest(t, router, http.MethodPut, "/api/v1/tasks/"+taskID+"/completion", `{"completed":true}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if d.toggler.callCount != 1 {
		t.Fatalf("Toggle calls = %d, want 1", d.toggler.callCount)
	}
	want := types.PersistedTask(taskID)
	if d.toggler.lastRef != want || d.toggler.lastUser != "user-1" || !d.toggler.lastCompleted {
		t.Errorf("Toggle(%q, %+v, %v)", d.toggler.lastUser, d.toggler.lastRef, d.toggler.lastCompleted)
	}

	var result types.ToggleResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.Completed || result.PlanProgress == nil || *result.PlanProgress != 25 {
		t.Errorf("result = %+v", result)
	}
}

func TestToggleAITask_Virtual(t *testing.T) {
	d := newTestDeps()
	router := newTestRouter(d, nil)
	planID := ulid.Make().String()

	w := doRequest(t, router, http.MethodPut, "/api/v1/plans/"+planID+"/ai-tasks/w2-d3-1/completion", `{"completed":false}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	want := types.VirtualTask(planID, "w2-d3-1")
	if d.toggler.lastRef != want || d.toggler.lastCompleted {
		t.Errorf("Toggle ref = %+v completed = %v", d.toggler.lastRef, d.toggler.lastCompleted)
	}
}

func TestToggle_RequestErrors(t *testing.T) {
	planID := ulid.Make().String()
	taskID := ulid.Make().String()

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantFields []string
	}{
		{"malformed json", "/api/v1/tasks/" + taskID + "/completion", `{"completed":`, http.StatusBadRequest, nil},
		{"empty body", "/api/v1/tasks/" + taskID + "/completion", "", http.StatusBadRequest, nil},
		{"missing completed", "/api/v1/tasks/" + taskID + "/completion", `{}`, http.StatusUnprocessableEntity, []string{"completed"}},
		{"bad task id", "/api/v1/tasks/not-a-ulid/completion", `{"completed":true}`, http.StatusUnprocessableEntity, []string{"task_id"}},
		{"bad plan and key", "/api/v1/plans/nope/ai-tasks/week2/completion", `{}`, http.StatusUnprocessableEntity, []string{"plan_id", "task_key", "completed"}},
		{"bad key only", "/api/v1/plans/" + planID + "/ai-tasks/w0-d1-0/completion", `{"completed":true}`, http.StatusUnprocessableEntity, []string{"task_key"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			router := newTestRouter(d, nil)

			w := doRequest(t, router, http.MethodPut, tt.path, tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if d.toggler.callCount != 0 {
				t.Error("Toggle called for an invalid request")
			}
			p := problemOf(t, w)
			if len(p.Errors) != len(tt.wantFields) {
				t.Fatalf("errors = %+v, want fields %v", p.Errors, tt.wantFields)
			}
			for i, f := range tt.wantFields {
				if p.Errors[i].Field != f {
					t.Errorf("errors[%d].field = %q, want %q", i, p.Errors[i].Field, f)
				}
			}
		})
	}
}

func TestToggle_DomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not owned", fmt.Errorf("get plan: %w", store.ErrNotFound), http.StatusNotFound},
		{"key outside plan", fmt.Errorf("%w: w9-d1-0 not in plan", progress.ErrInvalidTaskKey), http.StatusUnprocessableEntity},
		{"storage failure", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.toggler.err = tt.err
			router := newTestRouter(d, nil)

			w := doRequest(t, router, http.MethodPut, "/api/v1/plans/"+ulid.Make().String()+"/ai-tasks/w9-d1-0/completion", `{"completed":true}`)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

// --- Achievement Tests ---

func TestCheckAchievements(t *testing.T) {
	d := newTestDeps()
	d.achievements.newly = []types.UnlockedAchievement{{Key: "first_goal", Title: "First Goal", Icon: "flag"}}
	router := newTestRouter(d, nil)

	w := doRequest(t, router, http.MethodPost, "/api/v1/achievements/check", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp types.CheckAchievementsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.NewlyUnlocked) != 1 || resp.NewlyUnlocked[0].Key != "first_goal" {
		t.Errorf("newly_unlocked = %+v", resp.NewlyUnlocked)
	}
	if d.achievements.lastUser != "user-1" {
		t.Errorf("user = %q, want user-1", d.achievements.lastUser)
	}
}

func TestCheckAchievements_NothingNewIsEmptyArray(t *testing.T) {
	router := newTestRouter(newTestDeps(), nil)

	w := doRequest(t, router, http.MethodPost, "/api/v1/achievements/check", "")

	if !strings.Contains(w.Body.String(), `"newly_unlocked":[]`) {
		t.Errorf("body = %s, want empty array", w.Body.String())
	}
}

func TestListAchievements(t *testing.T) {
	d := newTestDeps()
	unlockedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	d.achievements.list = []types.AchievementWithStatus{
		{Achievement: types.Achievement{Key: "first_goal", Title: "First Goal"}, Unlocked: true, UnlockedAt: &unlockedAt},
		{Achievement: types.Achievement{Key: "streak_7", Title: "Week Streak"}},
	}
	d.achievements.count = 1
	router := newTestRouter(d, nil)

	w := doRequest(t, router, http.MethodGet, "/api/v1/achievements", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp types.AchievementsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.UnlockedCount != 1 || len(resp.Achievements) != 2 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Achievements[1].UnlockedAt != nil {
		t.Error("locked achievement carries unlocked_at")
	}
}

func TestAchievements_ServiceError(t *testing.T) {
	d := newTestDeps()
	d.achievements.err = errors.New("seed failed")
	router := newTestRouter(d, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/achievements"},
		{http.MethodPost, "/api/v1/achievements/check"},
	} {
		w := doRequest(t, router, tc.method, tc.path, "")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s %s status = %d, want 500", tc.method, tc.path, w.Code)
		}
	}
}

// --- Adaptive Tests ---

func TestAnalyzePlan(t *testing.T) {
	d := newTestDeps()
	router := newTestRouter(d, nil)
	planID := ulid.Make().String()

	w := doRequest(t, router, http.MethodPost, "/api/v1/plans/"+planID+"/adaptive/analyze", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if d.analyzer.lastPlan != planID || d.analyzer.lastUser != "user-1" {
		t.Errorf("Analyze(%q, %q)", d.analyzer.lastUser, d.analyzer.lastPlan)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"plan_id", "status", "completion_rate", "expected_rate", "suggestion", "adjustments", "generated_by"} {
		if _, ok := body[field]; !ok {
			t.Errorf("response missing %q: %s", field, w.Body.String())
		}
	}
}

func TestAnalyzePlan_Errors(t *testing.T) {
	d := newTestDeps()
	router := newTestRouter(d, nil)

	w := doRequest(t, router, http.MethodPost, "/api/v1/plans/plan-1/adaptive/analyze", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad id status = %d, want 422", w.Code)
	}
	if d.analyzer.callCount != 0 {
		t.Error("Analyze called with invalid plan id")
	}

	d.analyzer.err = fmt.Errorf("get plan: %w", store.ErrNotFound)
	w = doRequest(t, router, http.MethodPost, "/api/v1/plans/"+ulid.Make().String()+"/adaptive/analyze", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing plan status = %d, want 404", w.Code)
	}
}

func TestAnalyzePlan_RateLimitedPerUser(t *testing.T) {
	d := newTestDeps()
	limiter := NewUserRateLimiter(1, 2)
	router := newTestRouter(d, limiter)
	path := "/api/v1/plans/" + ulid.Make().String() + "/adaptive/analyze"

	for i := 0; i < 2; i++ {
		if w := doRequest(t, router, http.MethodPost, path, ""); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}

	w := doRequest(t, router, http.MethodPost, path, "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 without Retry-After")
	}
	if d.analyzer.callCount != 2 {
		t.Errorf("Analyze calls = %d, want 2", d.analyzer.callCount)
	}

	// another user has their own bucket
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set(UserIDHeader, "user-2")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("other user status = %d, want 200", w.Code)
	}
}

// --- Auth wiring ---

func TestProtectedRoutes_RequireKeyAndUser(t *testing.T) {
	router := newTestRouter(newTestDeps(), nil)

	tests := []struct {
		name  string
		token string
		user  string
		want  int
	}{
		{"no token", "", "user-1", http.StatusUnauthorized},
		{"wrong token", "nope", "user-1", http.StatusUnauthorized},
		{"no user", testAPIKey, "", http.StatusUnauthorized},
		{"oversized user", testAPIKey, strings.Repeat("u", 200), http.StatusUnprocessableEntity},
		{"ok", testAPIKey, "user-1", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/achievements", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			if tt.user != "" {
				req.Header.Set(UserIDHeader, tt.user)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
