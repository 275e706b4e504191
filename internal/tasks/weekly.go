package tasks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/museum-staffing/shift-manager/backend/internal/scheduler"
)

// ShiftWeeklyPeriods moves next week into this week. It runs on Monday at 00:00
// before any other job of the cycle.
func (r *Runner) ShiftWeeklyPeriods(ctx context.Context) error {
	settings, err := r.store.GetActiveSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	scheduler.ShiftWeeks(settings, r.today())

	if err := r.store.UpdateSettingsInPlace(settings); err != nil {
		return fmt.Errorf("failed to save week boundaries: %w", err)
	}
	r.invalidateSettings(ctx)
	r.invalidateSchedules(ctx)

	r.logger.Info("weekly periods shifted",
		zap.Stringer("this_week_start", settings.ThisWeekStart),
		zap.Stringer("this_week_end", settings.ThisWeekEnd),
		zap.Stringer("next_week_start", settings.NextWeekStart),
		zap.Stringer("next_week_end", settings.NextWeekEnd))
	return nil
}

// GeneratePositions creates every position of next week. It returns the
// number of created positions.
func (r *Runner) GeneratePositions(ctx context.Context) (int, error) {
	settings, err := r.store.GetActiveSettings()
	if err != nil {
		return 0, fmt.Errorf("failed to load settings: %w", err)
	}
	if !settings.NextWeekSet() {
		return 0, scheduler.ErrWindowNotInitialised
	}
	start, end := *settings.NextWeekStart, *settings.NextWeekEnd

	exhibitions, err := r.store.GetExhibitionsOverlapping(start.In(r.loc), end.AddDays(1).In(r.loc))
	if err != nil {
		return 0, fmt.Errorf("failed to load exhibitions: %w", err)
	}

	nonWorking, err := r.store.ListNonWorkingDaysBetween(start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to load non-working days: %w", err)
	}

	positions, err := scheduler.GeneratePositions(settings, exhibitions, nonWorking, r.loc)
	if err != nil {
		return 0, err
	}

	if len(positions) > 0 {
		if err := r.store.CreatePositions(positions); err != nil {
			return 0, fmt.Errorf("failed to store positions: %w", err)
		}
	}
	r.invalidateSchedules(ctx)

	r.logger.Info("positions generated",
		zap.Stringer("week_start", start),
		zap.Int("exhibitions", len(exhibitions)),
		zap.Int("non_working_days", len(nonWorking)),
		zap.Int("positions", len(positions)))
	return len(positions), nil
}

// UpdateGuardPriorities recomputes the priority of every active guard from the
// points of the last points_life_weeks weeks.
func (r *Runner) UpdateGuardPriorities(_ context.Context) (int, error) {
	settings, err := r.store.GetActiveSettings()
	if err != nil {
		return 0, fmt.Errorf("failed to load settings: %w", err)
	}

	windows := scheduler.PriorityWeeks(r.now().In(r.loc), settings.PointsLifeWeeks)
	for i := range windows {
		totals, err := r.store.PointTotals(windows[i].Start, windows[i].End)
		if err != nil {
			return 0, fmt.Errorf("failed to sum points: %w", err)
		}
		windows[i].Totals = totals
	}

	guards, err := r.store.GetActiveGuards()
	if err != nil {
		return 0, fmt.Errorf("failed to load guards: %w", err)
	}

	for _, g := range guards {
		priority := scheduler.CalculatePriority(g.ID, g.User.DateJoined, windows)
		if err := r.store.UpdateGuardPriority(g.ID, priority); err != nil {
			return 0, fmt.Errorf("failed to update priority of guard %d: %w", g.ID, err)
		}
		r.logger.Debug("guard priority updated", zap.String("username", g.User.Username), zap.Float64("priority", priority))
	}

	r.logger.Info("guard priorities updated", zap.Int("guards", len(guards)), zap.Int("weeks", len(windows)))
	return len(guards), nil
}
