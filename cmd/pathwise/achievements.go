package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pathwise/internal/types"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the achievement catalog",
	Long:  "Insert or update every built-in achievement definition. Safe to run repeatedly.",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

var achievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "Evaluate and list a user's achievements",
}

var achievementsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Unlock every achievement the user now qualifies for",
	Args:  cobra.NoArgs,
	RunE:  runAchievementsCheck,
}

var achievementsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the catalog with the user's unlock status",
	Args:  cobra.NoArgs,
	RunE:  runAchievementsList,
}

func init() {
	seedCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	achievementsCmd.PersistentFlags().StringVar(&userFlag, "user", "", "User ID (required)")
	achievementsCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	achievementsCmd.AddCommand(achievementsCheckCmd)
	achievementsCmd.AddCommand(achievementsListCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	env, err := openOperatorEnv(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.engine.evaluator.Seed(cmd.Context()); err != nil {
		return err
	}

	keys := env.engine.evaluator.Keys()
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]any{
			"seeded": len(keys),
			"keys":   keys,
		})
	}
	fmt.Fprintf(out, "Seeded %d achievements\n", len(keys))
	return nil
}

func runAchievementsCheck(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	env, err := openOperatorEnv(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	newly, err := env.engine.evaluator.CheckAndUnlock(cmd.Context(), userFlag)
	if err != nil {
		return err
	}
	if newly == nil {
		newly = []types.UnlockedAchievement{}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, types.CheckAchievementsResponse{NewlyUnlocked: newly})
	}
	if len(newly) == 0 {
		fmt.Fprintln(out, "No new achievements.")
		return nil
	}
	for _, a := range newly {
		fmt.Fprintf(out, "Unlocked %s %s (%s)\n", a.Icon, a.Title, a.Key)
	}
	return nil
}

func runAchievementsList(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	env, err := openOperatorEnv(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	list, count, err := env.engine.evaluator.List(cmd.Context(), userFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, types.AchievementsResponse{
			Achievements:  list,
			UnlockedCount: count,
		})
	}

	tw := newTabWriter(out)
	fmt.Fprintln(tw, "KEY\tTITLE\tCATEGORY\tUNLOCKED")
	for _, a := range list {
		unlocked := "-"
		if a.UnlockedAt != nil {
			unlocked = a.UnlockedAt.Format("2006-01-02 15:04 MST")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Key, a.Title, a.Category, unlocked)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d of %d unlocked\n", count, len(list))
	return nil
}
