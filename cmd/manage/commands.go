package main

import (
	"context"
	"errors"
	"os"

	"github.com/museum-staffing/shift-manager/backend/internal/tasks"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: withApp(func(_ context.Context, a *app, _ []string) error {
		applied, err := a.repo.Migrate()
		if err != nil {
			return err
		}
		a.logger.Info("migrations applied", zap.Strings("names", applied))
		return nil
	}),
}

var clearOpts tasks.ClearOptions

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Delete the whole cache, a key or every key matching a pattern",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		if a.cache == nil {
			return errors.New("cache is not reachable")
		}
		_, err := a.runner.ClearCache(ctx, clearOpts)
		return err
	}),
}

var permissionsFile string

var createGroupsCmd = &cobra.Command{
	Use:   "create-default-groups",
	Short: "Create the museum admin group and add every admin to it",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		var file []byte
		if permissionsFile != "" {
			data, err := os.ReadFile(permissionsFile)
			if err != nil {
				return err
			}
			file = data
		}
		_, err := a.runner.CreateDefaultGroups(ctx, file)
		return err
	}),
}

var shiftWeeksCmd = &cobra.Command{
	Use:   "shift-weeks",
	Short: "Move next week into this week (Monday 00:00)",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		return a.runner.ShiftWeeklyPeriods(ctx)
	}),
}

var generatePositionsCmd = &cobra.Command{
	Use:   "generate-positions",
	Short: "Create next week's positions from exhibitions and non-working days",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		n, err := a.runner.GeneratePositions(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("positions generated", zap.Int("count", n))
		return nil
	}),
}

var updatePrioritiesCmd = &cobra.Command{
	Use:   "update-priorities",
	Short: "Recalculate guard priorities from recent points",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		n, err := a.runner.UpdateGuardPriorities(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("priorities updated", zap.Int("guards", n))
		return nil
	}),
}

var validateTemplatesCmd = &cobra.Command{
	Use:   "validate-templates",
	Short: "Retire preference templates that no longer match next week",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		report, err := a.runner.ValidatePreferenceTemplates(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("templates validated", zap.Any("report", report))
		return nil
	}),
}

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Run the automated assignment for next week",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		summary, err := a.runner.RunAutomatedAssignment(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("automated assignment finished", zap.Any("summary", summary))
		return nil
	}),
}

var awardCompletionsCmd = &cobra.Command{
	Use:   "award-completions",
	Short: "Award points for positions completed today",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		n, err := a.runner.AwardDailyCompletions(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("completion awards created", zap.Int("count", n))
		return nil
	}),
}

var penalizeCheck bool

var penalizeCmd = &cobra.Command{
	Use:   "penalize",
	Short: "Penalise guards holding fewer next-week positions than the minimum",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		n, err := a.runner.PenalizeInsufficientPositions(ctx, penalizeCheck)
		if err != nil {
			return err
		}
		a.logger.Info("insufficient position penalties created", zap.Int("count", n))
		return nil
	}),
}

var expireSwapsCmd = &cobra.Command{
	Use:   "expire-swap-requests",
	Short: "Expire pending swap requests whose position has started",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		_, err := a.runner.ExpireSwapRequests(ctx)
		return err
	}),
}

var flushTokensCmd = &cobra.Command{
	Use:   "flush-expired-tokens",
	Short: "Delete blacklisted refresh tokens that are past their expiry",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		_, err := a.runner.FlushExpiredTokens(ctx)
		return err
	}),
}

func init() {
	clearCacheCmd.Flags().BoolVar(&clearOpts.All, "all", false, "clear the whole cache")
	clearCacheCmd.Flags().StringVar(&clearOpts.Key, "key", "", "delete a single key")
	clearCacheCmd.Flags().StringVar(&clearOpts.Pattern, "pattern", "", "delete keys matching a glob pattern")
	clearCacheCmd.MarkFlagsMutuallyExclusive("all", "key", "pattern")
	clearCacheCmd.MarkFlagsOneRequired("all", "key", "pattern")

	createGroupsCmd.Flags().StringVar(&permissionsFile, "permissions", "", "YAML permission file, defaults to the built-in list")

	penalizeCmd.Flags().BoolVar(&penalizeCheck, "check", false, "only run after the manual window when no penalty exists for the week")

	rootCmd.AddCommand(
		migrateCmd,
		clearCacheCmd,
		createGroupsCmd,
		shiftWeeksCmd,
		generatePositionsCmd,
		updatePrioritiesCmd,
		validateTemplatesCmd,
		assignCmd,
		awardCompletionsCmd,
		penalizeCmd,
		expireSwapsCmd,
		flushTokensCmd,
	)
}
