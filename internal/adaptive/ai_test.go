package adaptive

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperengineering/pathwise/internal/types"
)

// mockCompleter implements generation.Completer for testing
type mockCompleter struct {
	text       string
	err        error
	block      bool
	panicWith  any
	callCount  int
	lastPrompt string
}

func (m *mockCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.callCount++
	m.lastPrompt = prompt
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return m.text, m.err
}

func (m *mockCompleter) ModelName() string { return "mock" }

var behindPace = Pace{
	PlanID:         "plan-1",
	PlanTitle:      "Go in four weeks",
	DurationWeeks:  4,
	ElapsedWeeks:   2,
	CompletionRate: 20,
	ExpectedRate:   50,
	Status:         types.PaceFallingBehind,
}

const validAIResponse = `{"status":"falling_behind","completionRate":20,"suggestion":"Focus on the fundamentals.","adjustments":[{"week":3,"action":"reduce","reason":"catch up"},{"week":4,"action":"Keep","reason":"hold"}]}`

func TestAIGenerator_ValidResponse(t *testing.T) {
	mock := &mockCompleter{text: validAIResponse}
	g := NewAIGenerator(mock)

	draft, err := g.Generate(context.Background(), behindPace)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if draft.GeneratedBy != types.GeneratedByAI {
		t.Errorf("GeneratedBy = %q, want ai", draft.GeneratedBy)
	}
	if draft.Suggestion != "Focus on the fundamentals." {
		t.Errorf("Suggestion = %q", draft.Suggestion)
	}
	if len(draft.Adjustments) != 2 || draft.Adjustments[1].Action != types.ActionKeep {
		t.Errorf("Adjustments = %+v", draft.Adjustments)
	}
}

func TestAIGenerator_PromptCarriesPace(t *testing.T) {
	mock := &mockCompleter{text: validAIResponse}
	if _, err := NewAIGenerator(mock).Generate(context.Background(), behindPace); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Go in four weeks", "Duration: 4 weeks", "Elapsed: 2 weeks", "Completion rate: 20%", "Expected rate: 50%", "falling_behind", "Weeks to adjust: 3, 4"} {
		if !strings.Contains(mock.lastPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, mock.lastPrompt)
		}
	}
}

func TestAIGenerator_StripsCodeFences(t *testing.T) {
	fenced := "Here you go:\n```json\n" + validAIResponse + "\n```"
	draft, err := NewAIGenerator(&mockCompleter{text: fenced}).Generate(context.Background(), behindPace)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(draft.Adjustments) != 2 {
		t.Errorf("len(Adjustments) = %d, want 2", len(draft.Adjustments))
	}
}

func TestAIGenerator_RejectsBadResponses(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"not json", "I think you should study more", ErrMalformedResponse},
		{"truncated", `{"suggestion":"x","adjustments":[`, ErrMalformedResponse},
		{"missing suggestion", `{"adjustments":[{"week":3,"action":"reduce","reason":"r"}]}`, ErrMissingSuggestion},
		{"blank suggestion", `{"suggestion":"  ","adjustments":[{"week":3,"action":"reduce","reason":"r"}]}`, ErrMissingSuggestion},
		{"missing adjustments", `{"suggestion":"x"}`, ErrMissingAdjustments},
		{"null adjustments", `{"suggestion":"x","adjustments":null}`, ErrMissingAdjustments},
		{"object adjustments", `{"suggestion":"x","adjustments":{"week":3}}`, ErrMissingAdjustments},
		{"empty adjustments", `{"suggestion":"x","adjustments":[]}`, ErrMissingAdjustments},
		{"unknown action", `{"suggestion":"x","adjustments":[{"week":3,"action":"pause","reason":"r"}]}`, ErrUnknownAction},
		{"elapsed week", `{"suggestion":"x","adjustments":[{"week":2,"action":"reduce","reason":"r"}]}`, ErrWeekOutOfRange},
		{"week past plan", `{"suggestion":"x","adjustments":[{"week":5,"action":"reduce","reason":"r"}]}`, ErrWeekOutOfRange},
		{"repeated week", `{"suggestion":"x","adjustments":[{"week":4,"action":"increase"},{"week":4,"action":"reduce"}]}`, ErrDuplicateWeek},
		{"repeated week with all covered", `{"suggestion":"x","adjustments":[{"week":3,"action":"reduce"},{"week":4,"action":"keep"},{"week":3,"action":"keep"}]}`, ErrDuplicateWeek},
		{"skipped week", `{"suggestion":"x","adjustments":[{"week":4,"action":"reduce","reason":"r"}]}`, ErrMissingWeek},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAIGenerator(&mockCompleter{text: tt.text}).Generate(context.Background(), behindPace)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAIGenerator_SortsAdjustmentsByWeek(t *testing.T) {
	text := `{"suggestion":"x","adjustments":[{"week":4,"action":"keep"},{"week":3,"action":"reduce"}]}`
	draft, err := NewAIGenerator(&mockCompleter{text: text}).Generate(context.Background(), behindPace)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(draft.Adjustments) != 2 || draft.Adjustments[0].Week != 3 || draft.Adjustments[1].Week != 4 {
		t.Errorf("Adjustments = %+v, want weeks 3, 4", draft.Adjustments)
	}
	if draft.Adjustments[0].Action != types.ActionReduce {
		t.Errorf("week 3 action = %q, want reduce", draft.Adjustments[0].Action)
	}
}

func TestAIGenerator_TransportError(t *testing.T) {
	apiErr := errors.New("connection refused")
	_, err := NewAIGenerator(&mockCompleter{err: apiErr}).Generate(context.Background(), behindPace)
	if !errors.Is(err, apiErr) {
		t.Errorf("error = %v, want wrapped transport error", err)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
		{"Sure! {\"a\":1} Hope that helps.", `{"a":1}`},
		{"no json here", "no json here"},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
