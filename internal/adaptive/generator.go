package adaptive

import (
	"context"
	"fmt"

	"github.com/hyperengineering/pathwise/internal/types"
)

// Draft is the generated part of a suggestion.
type Draft struct {
	Suggestion  string
	Adjustments []types.WeekAdjustment
	GeneratedBy string
}

// Generator produces suggestion text and per-week adjustments for a pace.
// Implementations that block must return promptly once ctx is done.
type Generator interface {
	Generate(ctx context.Context, pace Pace) (*Draft, error)
}

// lastWeekReason is used when the plan has no weeks left to adjust.
const lastWeekReason = "plan already at its last week"

// RuleGenerator is the deterministic generator. It never fails.
type RuleGenerator struct{}

var _ Generator = RuleGenerator{}

// Generate builds a suggestion from the pace alone.
func (RuleGenerator) Generate(_ context.Context, pace Pace) (*Draft, error) {
	return &Draft{
		Suggestion:  ruleSuggestion(pace),
		Adjustments: ruleAdjustments(pace),
		GeneratedBy: types.GeneratedByRules,
	}, nil
}

func ruleSuggestion(p Pace) string {
	standing := fmt.Sprintf("You have completed %d%% of your tasks after week %d of %d, against an expected %d%%.",
		p.CompletionRate, p.ElapsedWeeks, p.DurationWeeks, p.ExpectedRate)

	switch p.Status {
	case types.PaceFallingBehind:
		return standing + " You are falling behind. Lighten the remaining weeks and focus on the core tasks to catch up."
	case types.PaceAhead:
		return standing + " You are ahead of schedule. Consider adding stretch tasks to the coming weeks."
	}
	return standing + " You are on track. Keep the current pace."
}

func ruleAdjustments(p Pace) []types.WeekAdjustment {
	if p.AtLastWeek() {
		return []types.WeekAdjustment{{
			Week:   p.DurationWeeks,
			Action: types.ActionKeep,
			Reason: lastWeekReason,
		}}
	}

	action := p.Action()
	gap := p.CompletionRate - p.ExpectedRate
	weeks := p.RemainingWeeks()
	out := make([]types.WeekAdjustment, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, types.WeekAdjustment{
			Week:   w,
			Action: action,
			Reason: ruleReason(action, w, gap),
		})
	}
	return out
}

func ruleReason(action types.AdjustmentAction, week, gap int) string {
	switch action {
	case types.ActionReduce:
		return fmt.Sprintf("%d points behind schedule; trim week %d to its essential tasks", -gap, week)
	case types.ActionIncrease:
		return fmt.Sprintf("%d points ahead of schedule; week %d can take extra practice", gap, week)
	}
	return fmt.Sprintf("progress matches the plan; keep week %d as scheduled", week)
}
