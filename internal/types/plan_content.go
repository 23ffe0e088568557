package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedTaskKey is returned when a task key does not follow w{week}-d{day}-{index}.
var ErrMalformedTaskKey = errors.New("malformed task key")

// WeekEntry is one week of a plan's content.
type WeekEntry struct {
	Week  int       `json:"week"`
	Focus string    `json:"focus,omitempty"`
	Tasks []DayTask `json:"tasks"`
}

// DayTask is a virtual task inside a week entry.
type DayTask struct {
	Day         int    `json:"day"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Minutes     int    `json:"minutes,omitempty"`
}

// PlanContent is the parsed form of Plan.Content.
type PlanContent []WeekEntry

// ParsePlanContent decodes serialized plan content. Blank content parses to an
// empty PlanContent.
func ParsePlanContent(raw string) (PlanContent, error) {
	if strings.TrimSpace(raw) == "" {
		return PlanContent{}, nil
	}
	var content PlanContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, fmt.Errorf("parse plan content: %w", err)
	}
	return content, nil
}

// TotalTasks returns the number of virtual tasks across all weeks.
func (c PlanContent) TotalTasks() int {
	total := 0
	for _, w := range c {
		total += len(w.Tasks)
	}
	return total
}

// Lookup resolves a task key against the content.
func (c PlanContent) Lookup(key TaskKey) (DayTask, bool) {
	for _, w := range c {
		if w.Week != key.Week {
			continue
		}
		if key.Index < 0 || key.Index >= len(w.Tasks) {
			continue
		}
		if t := w.Tasks[key.Index]; t.Day == key.Day {
			return t, true
		}
	}
	return DayTask{}, false
}

// TaskKey is the synthetic identifier of a virtual task: its week, its day and
// its zero-based position within the week entry.
type TaskKey struct {
	Week  int
	Day   int
	Index int
}

// String formats the key as w{week}-d{day}-{index}.
func (k TaskKey) String() string {
	return fmt.Sprintf("w%d-d%d-%d", k.Week, k.Day, k.Index)
}

// ParseTaskKey parses a key in the w{week}-d{day}-{index} format. Only the
// canonical spelling is accepted (no signs or leading zeros), so every
// virtual task has exactly one key.
func ParseTaskKey(s string) (TaskKey, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || !strings.HasPrefix(parts[0], "w") || !strings.HasPrefix(parts[1], "d") {
		return TaskKey{}, fmt.Errorf("%w: %q", ErrMalformedTaskKey, s)
	}
	week, err := strconv.Atoi(parts[0][1:])
	if err != nil || week < 1 {
		return TaskKey{}, fmt.Errorf("%w: bad week in %q", ErrMalformedTaskKey, s)
	}
	day, err := strconv.Atoi(parts[1][1:])
	if err != nil || day < 1 {
		return TaskKey{}, fmt.Errorf("%w: bad day in %q", ErrMalformedTaskKey, s)
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil || index < 0 {
		return TaskKey{}, fmt.Errorf("%w: bad index in %q", ErrMalformedTaskKey, s)
	}
	key := TaskKey{Week: week, Day: day, Index: index}
	if key.String() != s {
		return TaskKey{}, fmt.Errorf("%w: non-canonical key %q", ErrMalformedTaskKey, s)
	}
	return key, nil
}
