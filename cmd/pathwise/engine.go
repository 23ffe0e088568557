package main

import (
	"fmt"
	"time"

	"github.com/hyperengineering/pathwise/internal/achievement"
	"github.com/hyperengineering/pathwise/internal/adaptive"
	"github.com/hyperengineering/pathwise/internal/config"
	"github.com/hyperengineering/pathwise/internal/generation"
	"github.com/hyperengineering/pathwise/internal/metrics"
	"github.com/hyperengineering/pathwise/internal/progress"
	"github.com/hyperengineering/pathwise/internal/store"
	"github.com/hyperengineering/pathwise/internal/types"
)

// engine bundles the three services the server and CLI share.
type engine struct {
	aggregator     *progress.Aggregator
	analyzer       *adaptive.Analyzer
	evaluator      *achievement.Evaluator
	generatorModel string
}

// newEngine wires the services over st. Without a generator key suggestions
// come from rules alone.
func newEngine(cfg *config.Config, st store.Store, m *metrics.Metrics) (*engine, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	sources := make([]types.TaskSource, 0, len(cfg.Adaptive.TaskSources))
	for _, s := range cfg.Adaptive.TaskSources {
		sources = append(sources, types.TaskSource(s))
	}

	var primary adaptive.Generator
	model := types.GeneratedByRules
	if cfg.Generator.APIKey != "" {
		completer := generation.NewOpenAI(cfg.Generator.APIKey, cfg.Generator.Model, cfg.Generator.Temperature)
		primary = adaptive.NewAIGenerator(completer)
		model = completer.ModelName()
	}
	gen := adaptive.NewFallbackGenerator(primary, adaptive.RuleGenerator{}, time.Duration(cfg.Generator.Timeout), m)

	return &engine{
		aggregator:     progress.NewAggregator(st, cfg.Progress.MaxAttempts, m),
		analyzer:       adaptive.NewAnalyzer(st, gen, sources, m),
		evaluator:      achievement.NewEvaluator(st, achievement.Catalog(), loc, m),
		generatorModel: model,
	}, nil
}
