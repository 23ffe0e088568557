package adaptive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperengineering/pathwise/internal/metrics"
)

// DefaultTimeout bounds a single AI generation attempt.
const DefaultTimeout = 15 * time.Second

// FallbackGenerator tries primary under a deadline and answers from
// fallback on any failure. A nil primary means rules only. The deadline
// reaches primary only through ctx, so a primary that ignores ctx is not
// bounded by it.
type FallbackGenerator struct {
	primary  Generator
	fallback Generator
	timeout  time.Duration
	metrics  *metrics.Metrics
}

var _ Generator = (*FallbackGenerator)(nil)

// NewFallbackGenerator creates a FallbackGenerator. A nil fallback uses
// RuleGenerator; a non-positive timeout uses DefaultTimeout.
func NewFallbackGenerator(primary, fallback Generator, timeout time.Duration, m *metrics.Metrics) *FallbackGenerator {
	if fallback == nil {
		fallback = RuleGenerator{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FallbackGenerator{
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
		metrics:  m,
	}
}

// Generate returns the primary draft when it succeeds and the fallback draft
// otherwise. Primary failures are logged and counted, never returned.
func (f *FallbackGenerator) Generate(ctx context.Context, pace Pace) (*Draft, error) {
	if f.primary != nil {
		draft, err := f.tryPrimary(ctx, pace)
		if err == nil {
			return draft, nil
		}
		reason := FailureReason(err)
		slog.Warn("AI suggestion failed, using rules",
			"component", "adaptive",
			"plan_id", pace.PlanID,
			"reason", reason,
			"error", err,
		)
		f.metrics.GeneratorFallback(reason)
	}
	return f.fallback.Generate(ctx, pace)
}

func (f *FallbackGenerator) tryPrimary(ctx context.Context, pace Pace) (draft *Draft, err error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			draft, err = nil, fmt.Errorf("%w: %v", errGeneratorPanic, r)
		}
	}()

	draft, err = f.primary.Generate(ctx, pace)
	if err == nil && draft == nil {
		err = ErrMalformedResponse
	}
	return draft, err
}

var errGeneratorPanic = errors.New("generator panic")

// FailureReason maps a generation error to a short metric label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_json"
	case errors.Is(err, ErrMissingSuggestion):
		return "missing_suggestion"
	case errors.Is(err, ErrMissingAdjustments):
		return "missing_adjustments"
	case errors.Is(err, ErrUnknownAction):
		return "unknown_action"
	case errors.Is(err, ErrWeekOutOfRange):
		return "week_out_of_range"
	case errors.Is(err, ErrDuplicateWeek):
		return "duplicate_week"
	case errors.Is(err, ErrMissingWeek):
		return "missing_week"
	case errors.Is(err, errGeneratorPanic):
		return "panic"
	}
	return "transport"
}
