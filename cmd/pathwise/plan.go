package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Analyze or repair a plan",
}

var planAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute pace and suggest per-week adjustments",
	Args:  cobra.NoArgs,
	RunE:  runPlanAnalyze,
}

var planRecalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recompute plan progress and cascade to its goal",
	Args:  cobra.NoArgs,
	RunE:  runPlanRecalc,
}

func init() {
	planCmd.PersistentFlags().StringVar(&userFlag, "user", "", "Owner user ID (required)")
	planCmd.PersistentFlags().StringVar(&planFlag, "plan", "", "Plan ID (required)")
	planCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	planCmd.AddCommand(planAnalyzeCmd)
	planCmd.AddCommand(planRecalcCmd)
}

func runPlanAnalyze(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	if err := requirePlan(); err != nil {
		return err
	}
	env, err := openOperatorEnv(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	s, err := env.engine.analyzer.Analyze(cmd.Context(), userFlag, planFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, s)
	}

	fmt.Fprintf(out, "Plan:       %s\n", s.PlanID)
	fmt.Fprintf(out, "Status:     %s\n", s.Status)
	fmt.Fprintf(out, "Completion: %d%% (expected %d%%)\n", s.CompletionRate, s.ExpectedRate)
	fmt.Fprintf(out, "Week:       %d of %d\n", s.ElapsedWeeks, s.DurationWeeks)
	fmt.Fprintf(out, "Source:     %s\n", s.GeneratedBy)
	fmt.Fprintf(out, "\n%s\n", s.Suggestion)
	if len(s.Adjustments) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	tw := newTabWriter(out)
	fmt.Fprintln(tw, "WEEK\tACTION\tREASON")
	for _, a := range s.Adjustments {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", a.Week, a.Action, a.Reason)
	}
	return tw.Flush()
}

func runPlanRecalc(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	if err := requirePlan(); err != nil {
		return err
	}
	env, err := openOperatorEnv(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if err := env.engine.aggregator.RecalcPlanProgress(ctx, planFlag, userFlag); err != nil {
		return err
	}

	// Recalc treats a missing plan as a no-op; report it here instead.
	plan, err := env.store.GetPlan(ctx, planFlag, userFlag)
	if err != nil {
		return fmt.Errorf("plan %s: %w", planFlag, err)
	}
	goal, err := env.store.GetGoal(ctx, plan.GoalID, userFlag)
	if err != nil {
		return fmt.Errorf("goal %s: %w", plan.GoalID, err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]any{
			"plan_id":       plan.ID,
			"plan_progress": plan.Progress,
			"goal_id":       goal.ID,
			"goal_progress": goal.Progress,
			"goal_status":   goal.Status,
		})
	}
	fmt.Fprintf(out, "Plan %s: %d%%\n", plan.ID, plan.Progress)
	fmt.Fprintf(out, "Goal %s: %d%% (%s)\n", goal.ID, goal.Progress, goal.Status)
	return nil
}
