package adaptive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hyperengineering/pathwise/internal/generation"
	"github.com/hyperengineering/pathwise/internal/types"
)

// Errors reported by AIGenerator when the collaborator's answer cannot be used.
var (
	ErrMalformedResponse  = errors.New("malformed AI response")
	ErrMissingSuggestion  = errors.New("AI response missing suggestion")
	ErrMissingAdjustments = errors.New("AI response missing adjustments")
	ErrUnknownAction      = errors.New("AI response has unknown action")
	ErrWeekOutOfRange     = errors.New("AI response week out of range")
	ErrDuplicateWeek      = errors.New("AI response repeats a week")
	ErrMissingWeek        = errors.New("AI response skips a week")
)

const systemPrompt = `You are a learning coach reviewing a study plan. Answer with a single JSON object and nothing else:
{"status": string, "completionRate": number, "suggestion": string, "adjustments": [{"week": number, "action": "reduce"|"keep"|"increase", "reason": string}]}
Give one adjustment per listed week. Keep the suggestion under 80 words.`

// AIGenerator asks a generative text collaborator for the suggestion wording.
type AIGenerator struct {
	completer generation.Completer
}

var _ Generator = (*AIGenerator)(nil)

// NewAIGenerator creates an AIGenerator backed by completer.
func NewAIGenerator(completer generation.Completer) *AIGenerator {
	return &AIGenerator{completer: completer}
}

// Generate sends the pace as context and validates the answer.
func (g *AIGenerator) Generate(ctx context.Context, pace Pace) (*Draft, error) {
	text, err := g.completer.Complete(ctx, systemPrompt, buildPrompt(pace))
	if err != nil {
		return nil, err
	}
	return parseResponse(text, pace)
}

func buildPrompt(p Pace) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan: %q\n", p.PlanTitle)
	fmt.Fprintf(&b, "Duration: %d weeks\n", p.DurationWeeks)
	fmt.Fprintf(&b, "Elapsed: %d weeks\n", p.ElapsedWeeks)
	fmt.Fprintf(&b, "Completion rate: %d%%\n", p.CompletionRate)
	fmt.Fprintf(&b, "Expected rate: %d%%\n", p.ExpectedRate)
	fmt.Fprintf(&b, "Status: %s\n", p.Status)
	weeks := p.RemainingWeeks()
	parts := make([]string, len(weeks))
	for i, w := range weeks {
		parts[i] = fmt.Sprint(w)
	}
	fmt.Fprintf(&b, "Weeks to adjust: %s\n", strings.Join(parts, ", "))
	return b.String()
}

type aiAdjustment struct {
	Week   int    `json:"week"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// aiResponse mirrors the requested object. status and completionRate are
// accepted but ignored; the computed values always win.
type aiResponse struct {
	Status         json.RawMessage `json:"status"`
	CompletionRate json.RawMessage `json:"completionRate"`
	Suggestion     *string         `json:"suggestion"`
	Adjustments    json.RawMessage `json:"adjustments"`
}

func parseResponse(text string, pace Pace) (*Draft, error) {
	body := stripFences(text)

	var resp aiResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if resp.Suggestion == nil || strings.TrimSpace(*resp.Suggestion) == "" {
		return nil, ErrMissingSuggestion
	}

	raw := bytes.TrimSpace(resp.Adjustments)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, ErrMissingAdjustments
	}
	var items []aiAdjustment
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(items) == 0 {
		return nil, ErrMissingAdjustments
	}

	remaining := pace.RemainingWeeks()
	allowed := make(map[int]bool, len(remaining))
	for _, w := range remaining {
		allowed[w] = true
	}
	seen := make(map[int]bool, len(items))

	adjustments := make([]types.WeekAdjustment, 0, len(items))
	for _, it := range items {
		action := types.AdjustmentAction(strings.ToLower(strings.TrimSpace(it.Action)))
		if !action.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, it.Action)
		}
		if !allowed[it.Week] {
			return nil, fmt.Errorf("%w: %d", ErrWeekOutOfRange, it.Week)
		}
		if seen[it.Week] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateWeek, it.Week)
		}
		seen[it.Week] = true
		adjustments = append(adjustments, types.WeekAdjustment{
			Week:   it.Week,
			Action: action,
			Reason: strings.TrimSpace(it.Reason),
		})
	}

	// Exactly one adjustment per remaining week, in week order
	for _, w := range remaining {
		if !seen[w] {
			return nil, fmt.Errorf("%w: %d", ErrMissingWeek, w)
		}
	}
	slices.SortFunc(adjustments, func(a, b types.WeekAdjustment) int {
		return a.Week - b.Week
	})

	return &Draft{
		Suggestion:  strings.TrimSpace(*resp.Suggestion),
		Adjustments: adjustments,
		GeneratedBy: types.GeneratedByAI,
	}, nil
}

// stripFences removes a surrounding markdown code fence and any prose around
// the outermost JSON object.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
