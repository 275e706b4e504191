package tasks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/scheduler"
)

type AssignmentSummary struct {
	WeekStart  domain.Date `json:"week_start"`
	WeekEnd    domain.Date `json:"week_end"`
	Guards     int         `json:"guards"`
	Positions  int         `json:"positions"`
	Assigned   int         `json:"assigned"`
	Remaining  int         `json:"remaining"`
	Minimum    int         `json:"minimum"`
	Capped     bool        `json:"capped"`
	SkipReason string      `json:"skip_reason,omitempty"`
}

// RunAutomatedAssignment assigns next week's open positions to the guards that
// submitted availability during the configuration window, then recalculates
// the weekly minimum and mails a summary to the admins.
func (r *Runner) RunAutomatedAssignment(ctx context.Context) (*AssignmentSummary, error) {
	settings, err := r.store.GetActiveSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if !settings.NextWeekSet() {
		return nil, scheduler.ErrWindowNotInitialised
	}
	windows, err := scheduler.ComputeWindows(settings, r.loc)
	if err != nil {
		return nil, err
	}
	start, end := *settings.NextWeekStart, *settings.NextWeekEnd

	guards, err := r.store.GetGuardsWithAvailabilityUpdated(windows.ConfigStart, windows.ConfigEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load guards: %w", err)
	}

	states, err := r.store.ListPositionStates(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	summary := &AssignmentSummary{
		WeekStart: start,
		WeekEnd:   end,
		Guards:    len(guards),
		Positions: len(states),
	}

	caps, capped := scheduler.CalculateAvailabilityCaps(guards, len(states))
	summary.Capped = capped
	if capped {
		n := 0
		for _, g := range guards {
			if caps[g.ID] < g.AvailabilityValue() {
				n++
			}
		}
		r.logger.Info("availability capped", zap.Int("guards", n))
	}

	switch {
	case len(guards) == 0:
		summary.SkipReason = "no_guards"
	case len(states) == 0:
		summary.SkipReason = "no_positions"
	}

	if summary.SkipReason == "" {
		assigned, err := r.assign(settings, guards, caps, states)
		if err != nil {
			return nil, err
		}
		summary.Assigned = assigned
	} else {
		r.logger.Warn("automated assignment skipped", zap.String("reason", summary.SkipReason))
	}

	minimum, err := r.updateMinimum(settings, start, end)
	if err != nil {
		return nil, err
	}
	summary.Minimum = minimum

	remaining, err := r.store.CountPositionsWithoutHistory(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count open positions: %w", err)
	}
	summary.Remaining = remaining

	r.invalidateSettings(ctx)
	r.invalidateSchedules(ctx)
	r.sendAssignmentSummary(ctx, summary)

	r.logger.Info("automated assignment completed",
		zap.Stringer("week_start", start),
		zap.Int("guards", summary.Guards),
		zap.Int("positions", summary.Positions),
		zap.Int("assigned", summary.Assigned),
		zap.Int("remaining", summary.Remaining),
		zap.Int("minimum", summary.Minimum))
	return summary, nil
}

func (r *Runner) assign(settings *domain.SystemSettings, guards []*domain.Guard, caps map[int64]int, states []*domain.PositionState) (int, error) {
	weekStart := *settings.NextWeekStart

	all := make([]*domain.Position, 0, len(states))
	open := make([]*domain.Position, 0, len(states))
	for _, s := range states {
		all = append(all, s.Position)
		if s.Latest == nil {
			open = append(open, s.Position)
		}
	}

	exhibitionPrefs, err := r.store.ListExhibitionPreferences(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to load exhibition preferences: %w", err)
	}
	dayPrefs, err := r.store.ListDayPreferences(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to load day preferences: %w", err)
	}

	fallback := scheduler.FallbackPeriods(settings, all)
	candidates := make([]*scheduler.Candidate, 0, len(guards))
	for _, g := range guards {
		stored, err := r.store.ListWorkPeriods(g.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to load work periods of guard %d: %w", g.ID, err)
		}

		periods := fallback
		if resolved := scheduler.ResolveWorkPeriods(stored, weekStart); len(resolved) > 0 {
			periods = scheduler.PeriodSet(resolved)
		}

		candidates = append(candidates, &scheduler.Candidate{
			Guard:           g,
			Slots:           caps[g.ID],
			Periods:         periods,
			ExhibitionOrder: scheduler.ResolveExhibitionOrder(exhibitionPrefs, g.ID, weekStart),
			DayOrder:        scheduler.ResolveDayOrder(dayPrefs, g.ID, weekStart),
		})
	}

	result := scheduler.New(nil, settings, candidates, open).Schedule()
	r.logger.Info("assignment matrix solved",
		zap.Int("slots", result.TotalSlots),
		zap.Int("proposed", result.Proposed),
		zap.Int("filtered_impossible", result.FilteredImpossible),
		zap.Int("filtered_overlapping", result.FilteredOverlapping))

	if len(result.Assignments) == 0 {
		return 0, nil
	}

	now := r.now()
	rows := make([]*domain.PositionHistory, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		rows = append(rows, &domain.PositionHistory{
			PositionID: a.PositionID,
			GuardID:    a.GuardID,
			Action:     domain.ActionAssigned,
			ActionTime: now,
		})
	}
	if err := r.store.CreateHistories(rows); err != nil {
		return 0, fmt.Errorf("failed to store assignments: %w", err)
	}
	return len(rows), nil
}

// updateMinimum stores the weekly minimum derived from what is still open
// after the automated assignment.
func (r *Runner) updateMinimum(settings *domain.SystemSettings, start, end domain.Date) (int, error) {
	empty, err := r.store.CountPositionsWithoutHistory(start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to count empty positions: %w", err)
	}

	guards, err := r.store.GetActiveGuards()
	if err != nil {
		return 0, fmt.Errorf("failed to load guards: %w", err)
	}

	states, err := r.store.ListPositionStates(start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to load positions: %w", err)
	}

	held := heldCounts(states)
	counts := make([]int, 0, len(guards))
	for _, g := range guards {
		counts = append(counts, held[g.ID])
	}

	minimum := scheduler.CalculateMinimum(empty, counts)
	settings.MinimalNumberOfPositionsInWeek = minimum
	if err := r.store.UpdateSettingsInPlace(settings); err != nil {
		return 0, fmt.Errorf("failed to save minimum: %w", err)
	}

	r.logger.Info("weekly minimum calculated", zap.Int("empty_positions", empty), zap.Int("guards", len(guards)), zap.Int("minimum", minimum))
	return minimum, nil
}

func heldCounts(states []*domain.PositionState) map[int64]int {
	held := make(map[int64]int)
	for _, s := range states {
		if s.Latest != nil && completes(s.Latest.Action) {
			held[s.Latest.GuardID]++
		}
	}
	return held
}

func (r *Runner) sendAssignmentSummary(ctx context.Context, summary *AssignmentSummary) {
	if r.mail == nil {
		return
	}

	emails, err := r.store.GetAdminEmails()
	if err != nil {
		r.logger.Warn("failed to load admin emails", zap.Error(err))
		return
	}

	data := domain.AssignmentSummaryMailData{
		WeekStart:          summary.WeekStart.String(),
		WeekEnd:            summary.WeekEnd.String(),
		TotalGuards:        summary.Guards,
		TotalPositions:     summary.Positions,
		AssignmentsCreated: summary.Assigned,
		PositionsRemaining: summary.Remaining,
		MinimumPositions:   summary.Minimum,
		CappingOccurred:    summary.Capped,
	}
	for _, to := range emails {
		msg := domain.MailMessage{Type: domain.MailAssignmentSummary, To: to, Data: data}
		if err := r.mail.Publish(ctx, msg); err != nil {
			r.logger.Warn("failed to queue assignment summary", zap.String("to", to), zap.Error(err))
		}
	}
}
