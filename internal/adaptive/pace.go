// Package adaptive compares actual plan progress against the time-elapsed
// expectation and suggests per-week load adjustments.
package adaptive

import (
	"math"
	"time"

	"github.com/hyperengineering/pathwise/internal/types"
)

const week = 7 * 24 * time.Hour

// Pace is the computed standing of a plan. It is the full context handed to
// suggestion generators.
type Pace struct {
	PlanID         string
	PlanTitle      string
	DurationWeeks  int
	ElapsedWeeks   int
	CompletionRate int
	ExpectedRate   int
	Status         types.PaceStatus
}

// ComputePace derives the pace of plan from the task counts of the given
// sources at time now.
func ComputePace(plan *types.Plan, tally types.TaskTally, sources []types.TaskSource, now time.Time) Pace {
	duration := plan.DurationWeeks
	if duration < 1 {
		duration = 1
	}

	counts := tally.Sum(sources)
	completionRate := 0
	if counts.Total > 0 {
		completionRate = int(math.Round(float64(counts.Completed) / float64(counts.Total) * 100))
	}

	elapsed := int(math.Ceil(float64(now.Sub(plan.CreatedAt)) / float64(week)))
	if elapsed < 1 {
		elapsed = 1
	}

	expected := int(math.Round(float64(elapsed) / float64(duration) * 100))
	if expected > 100 {
		expected = 100
	}

	return Pace{
		PlanID:         plan.ID,
		PlanTitle:      plan.Title,
		DurationWeeks:  duration,
		ElapsedWeeks:   elapsed,
		CompletionRate: completionRate,
		ExpectedRate:   expected,
		Status:         classify(completionRate, expected),
	}
}

// classify applies a ±10% band around the expected rate.
func classify(completionRate, expectedRate int) types.PaceStatus {
	actual := float64(completionRate)
	expected := float64(expectedRate)
	if actual >= expected*0.9 {
		if actual > expected*1.1 {
			return types.PaceAhead
		}
		return types.PaceOnTrack
	}
	return types.PaceFallingBehind
}

// RemainingWeeks returns the weeks still ahead of the plan, elapsed+1 through
// duration. When none remain it returns only the final week.
func (p Pace) RemainingWeeks() []int {
	var weeks []int
	for w := p.ElapsedWeeks + 1; w <= p.DurationWeeks; w++ {
		weeks = append(weeks, w)
	}
	if len(weeks) == 0 {
		weeks = []int{p.DurationWeeks}
	}
	return weeks
}

// AtLastWeek reports whether no weeks remain after the elapsed ones.
func (p Pace) AtLastWeek() bool {
	return p.ElapsedWeeks >= p.DurationWeeks
}

// Action returns the adjustment implied by the pace status.
func (p Pace) Action() types.AdjustmentAction {
	switch p.Status {
	case types.PaceFallingBehind:
		return types.ActionReduce
	case types.PaceAhead:
		return types.ActionIncrease
	}
	return types.ActionKeep
}
