package types

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const samplePlanContent = `[
	{"week":1,"focus":"Basics","tasks":[{"day":1,"title":"Tour of Go","minutes":30},{"day":1,"title":"Install toolchain"},{"day":2,"title":"Slices"}]},
	{"week":2,"tasks":[{"day":3,"title":"Interfaces"}]}
]`

func TestParsePlanContent(t *testing.T) {
	content, err := ParsePlanContent(samplePlanContent)
	if err != nil {
		t.Fatalf("ParsePlanContent: %v", err)
	}
	if len(content) != 2 {
		t.Fatalf("len(content) = %d, want 2", len(content))
	}
	if got := content.TotalTasks(); got != 4 {
		t.Errorf("TotalTasks() = %d, want 4", got)
	}
	if content[0].Focus != "Basics" {
		t.Errorf("Focus = %q, want Basics", content[0].Focus)
	}
}

func TestParsePlanContent_Blank(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n"} {
		content, err := ParsePlanContent(raw)
		if err != nil {
			t.Errorf("ParsePlanContent(%q) error = %v", raw, err)
		}
		if content.TotalTasks() != 0 {
			t.Errorf("ParsePlanContent(%q).TotalTasks() = %d, want 0", raw, content.TotalTasks())
		}
	}
}

func TestParsePlanContent_Malformed(t *testing.T) {
	for _, raw := range []string{"not json", `{"week":1}`, `[{"week":"one"}]`} {
		if _, err := ParsePlanContent(raw); err == nil {
			t.Errorf("ParsePlanContent(%q) expected error", raw)
		}
	}
}

func TestPlanContent_Lookup(t *testing.T) {
	content, err := ParsePlanContent(samplePlanContent)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		key   TaskKey
		found bool
		title string
	}{
		{TaskKey{Week: 1, Day: 1, Index: 1}, true, "Install toolchain"},
		{TaskKey{Week: 2, Day: 3, Index: 0}, true, "Interfaces"},
		{TaskKey{Week: 1, Day: 3, Index: 1}, false, ""}, // day mismatch
		{TaskKey{Week: 1, Day: 1, Index: 5}, false, ""}, // index out of range
		{TaskKey{Week: 9, Day: 1, Index: 0}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			task, ok := content.Lookup(tt.key)
			if ok != tt.found {
				t.Fatalf("Lookup found = %v, want %v", ok, tt.found)
			}
			if task.Title != tt.title {
				t.Errorf("Title = %q, want %q", task.Title, tt.title)
			}
		})
	}
}

func TestParseTaskKey(t *testing.T) {
	key, err := ParseTaskKey("w2-d3-1")
	if err != nil {
		t.Fatalf("ParseTaskKey: %v", err)
	}
	if key != (TaskKey{Week: 2, Day: 3, Index: 1}) {
		t.Errorf("key = %+v", key)
	}
	if key.String() != "w2-d3-1" {
		t.Errorf("String() = %q", key.String())
	}
}

func TestParseTaskKey_Invalid(t *testing.T) {
	for _, s := range []string{"", "w1-d1", "x1-d1-0", "w1-x1-0", "w0-d1-0", "w1-d0-0", "w1-d1--1", "wa-d1-0", "w1-d1-0-2",
		"w01-d1-0", "w+1-d1-0", "w1-d01-0", "w1-d1-00", "w1-d1-+0"} {
		_, err := ParseTaskKey(s)
		if !errors.Is(err, ErrMalformedTaskKey) {
			t.Errorf("ParseTaskKey(%q) error = %v, want ErrMalformedTaskKey", s, err)
		}
	}
}

func TestTaskTally_Sum(t *testing.T) {
	tally := TaskTally{
		Persisted: SourceCount{Total: 4, Completed: 1},
		Virtual:   SourceCount{Total: 6, Completed: 3},
	}

	tests := []struct {
		name    string
		sources []TaskSource
		want    SourceCount
	}{
		{"both", []TaskSource{TaskSourcePersisted, TaskSourceVirtual}, SourceCount{Total: 10, Completed: 4}},
		{"persisted", []TaskSource{TaskSourcePersisted}, SourceCount{Total: 4, Completed: 1}},
		{"virtual", []TaskSource{TaskSourceVirtual}, SourceCount{Total: 6, Completed: 3}},
		{"none", nil, SourceCount{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tally.Sum(tt.sources); got != tt.want {
				t.Errorf("Sum() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEnumsValid(t *testing.T) {
	if !GoalCompleted.Valid() || GoalStatus("DONE").Valid() {
		t.Error("GoalStatus.Valid mismatch")
	}
	if !TaskSourceVirtual.Valid() || TaskSource("both").Valid() {
		t.Error("TaskSource.Valid mismatch")
	}
	if !ActionReduce.Valid() || AdjustmentAction("pause").Valid() {
		t.Error("AdjustmentAction.Valid mismatch")
	}
}

func TestAchievementWithStatus_JSONFlattensEmbedded(t *testing.T) {
	a := AchievementWithStatus{
		Achievement: Achievement{Key: "first_goal", Title: "First Goal", Category: CategoryMilestone},
		Unlocked:    false,
	}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"key":"first_goal"`) {
		t.Errorf("embedded fields not flattened: %s", s)
	}
	if strings.Contains(s, "unlocked_at") {
		t.Errorf("unlocked_at should be omitted when nil: %s", s)
	}
}
