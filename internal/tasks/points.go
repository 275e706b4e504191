package tasks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/scheduler"
)

// AwardDailyCompletions awards points for every position of today still held by
// a guard. It runs at 23:00, after the last shift of the day.
func (r *Runner) AwardDailyCompletions(_ context.Context) (int, error) {
	settings, err := r.store.GetActiveSettings()
	if err != nil {
		return 0, fmt.Errorf("failed to load settings: %w", err)
	}

	today := r.today()
	states, err := r.store.ListPositionStates(today, today)
	if err != nil {
		return 0, fmt.Errorf("failed to load positions: %w", err)
	}

	now := r.now()
	awarded, total := 0, 0.0
	for _, s := range states {
		if s.Latest == nil || !completes(s.Latest.Action) {
			continue
		}

		p := s.Position
		point := &domain.Point{
			GuardID:     s.Latest.GuardID,
			Points:      settings.AwardForPositionCompletion,
			DateAwarded: now,
			Explanation: fmt.Sprintf("Completed position (%s, %s)", exhibitionName(p), p.Date),
		}
		if p.Date.Weekday() == 6 {
			point.Points = settings.AwardForSundayPositionCompletion
			point.Explanation = fmt.Sprintf("Completed Sunday position (%s, %s)", exhibitionName(p), p.Date)
		}

		if err := r.store.CreatePoint(point); err != nil {
			return awarded, fmt.Errorf("failed to award guard %d: %w", point.GuardID, err)
		}
		awarded++
		total += point.Points
	}

	r.logger.Info("daily completions awarded", zap.Stringer("date", today), zap.Int("awards", awarded), zap.Float64("points", domain.Round2(total)))
	return awarded, nil
}

func exhibitionName(p *domain.Position) string {
	if p.Exhibition == nil {
		return fmt.Sprintf("exhibition %d", p.ExhibitionID)
	}
	return p.Exhibition.Name
}

func insufficientPrefix(weekStart domain.Date) string {
	return fmt.Sprintf("Insufficient positions for week starting %s", weekStart)
}

// PenalizeInsufficientPositions penalises every active guard holding fewer
// next-week positions than the weekly minimum. With check set it only runs
// once the manual window is over and no penalty for the week exists yet.
func (r *Runner) PenalizeInsufficientPositions(_ context.Context, check bool) (int, error) {
	settings, err := r.store.GetActiveSettings()
	if err != nil {
		return 0, fmt.Errorf("failed to load settings: %w", err)
	}
	if !settings.NextWeekSet() {
		return 0, scheduler.ErrWindowNotInitialised
	}
	start, end := *settings.NextWeekStart, *settings.NextWeekEnd

	if check {
		windows, err := scheduler.ComputeWindows(settings, r.loc)
		if err != nil {
			return 0, err
		}
		if r.now().Before(windows.ManualEnd) {
			r.logger.Debug("manual assignment window still open", zap.Time("ends_at", windows.ManualEnd))
			return 0, nil
		}
		applied, err := r.store.HasPointsSince(insufficientPrefix(start), windows.ManualEnd)
		if err != nil {
			return 0, fmt.Errorf("failed to look up earlier penalties: %w", err)
		}
		if applied {
			r.logger.Debug("penalty already applied", zap.Stringer("week_start", start))
			return 0, nil
		}
	}

	states, err := r.store.ListPositionStates(start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to load positions: %w", err)
	}
	guards, err := r.store.GetActiveGuards()
	if err != nil {
		return 0, fmt.Errorf("failed to load guards: %w", err)
	}

	held := heldCounts(states)
	minimum := settings.MinimalNumberOfPositionsInWeek
	now := r.now()
	penalised := 0
	for _, g := range guards {
		if held[g.ID] >= minimum {
			continue
		}
		point := &domain.Point{
			GuardID:     g.ID,
			Points:      settings.PenaltyForAssigningLessThanMinimal,
			DateAwarded: now,
			Explanation: fmt.Sprintf("%s (%d/%d)", insufficientPrefix(start), held[g.ID], minimum),
		}
		if err := r.store.CreatePoint(point); err != nil {
			return penalised, fmt.Errorf("failed to penalise guard %d: %w", g.ID, err)
		}
		penalised++
		r.logger.Debug("guard penalised", zap.String("username", g.User.Username), zap.Int("held", held[g.ID]), zap.Int("minimum", minimum))
	}

	r.logger.Info("insufficient positions penalised", zap.Stringer("week_start", start), zap.Int("guards", penalised))
	return penalised, nil
}
