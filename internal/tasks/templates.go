package tasks

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/scheduler"
)

// workPeriodRetention is how far back plain work period rows are kept.
const workPeriodRetention = 21

type TemplateReport struct {
	ExhibitionInvalidated int   `json:"exhibition_invalidated"`
	DayInvalidated        int   `json:"day_invalidated"`
	WorkPeriodInvalidated int   `json:"work_period_invalidated"`
	CarriedForward        int   `json:"carried_forward"`
	DeletedWorkPeriods    int64 `json:"deleted_work_periods"`
}

// weekPositions loads and memoises the positions of the week starting at a Monday.
type weekPositions struct {
	store Store
	weeks map[domain.Date][]*domain.Position
}

func (w *weekPositions) get(start domain.Date) ([]*domain.Position, error) {
	if p, ok := w.weeks[start]; ok {
		return p, nil
	}
	end := start.AddDays(6)
	p, err := w.store.ListPositions(&start, &end)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions of week %s: %w", start, err)
	}
	w.weeks[start] = p
	return p, nil
}

// ValidatePreferenceTemplates keeps a template only while next week offers the
// same exhibitions, days and shifts as the week it was saved for. Matching work
// period templates are carried forward to next week, the rest are retired.
func (r *Runner) ValidatePreferenceTemplates(_ context.Context) (*TemplateReport, error) {
	settings, err := r.store.GetActiveSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if !settings.NextWeekSet() || !settings.ThisWeekSet() {
		return nil, scheduler.ErrWindowNotInitialised
	}
	nextStart := *settings.NextWeekStart

	weeks := &weekPositions{store: r.store, weeks: make(map[domain.Date][]*domain.Position)}
	next, err := weeks.get(nextStart)
	if err != nil {
		return nil, err
	}

	report := &TemplateReport{}

	exhibitionPrefs, err := r.store.ListExhibitionPreferences(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load exhibition preferences: %w", err)
	}
	current := scheduler.ExhibitionSet(next)
	for _, p := range exhibitionPrefs {
		if !p.IsTemplate {
			continue
		}
		saved, err := weeks.get(r.templateWeek(p.CreatedAt))
		if err != nil {
			return nil, err
		}
		if slices.Equal(scheduler.ExhibitionSet(saved), current) {
			continue
		}
		if err := r.store.RetireExhibitionPreference(p.ID, nextStart); err != nil {
			return nil, fmt.Errorf("failed to retire exhibition preference %d: %w", p.ID, err)
		}
		report.ExhibitionInvalidated++
		r.logger.Info("exhibition template invalidated", zap.Int64("guard_id", p.GuardID))
	}

	dayPrefs, err := r.store.ListDayPreferences(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load day preferences: %w", err)
	}
	currentDays := scheduler.WeekdaySet(next)
	for _, p := range dayPrefs {
		if !p.IsTemplate {
			continue
		}
		saved, err := weeks.get(r.templateWeek(p.CreatedAt))
		if err != nil {
			return nil, err
		}
		if slices.Equal(scheduler.WeekdaySet(saved), currentDays) {
			continue
		}
		if err := r.store.RetireDayPreference(p.ID, nextStart); err != nil {
			return nil, fmt.Errorf("failed to retire day preference %d: %w", p.ID, err)
		}
		report.DayInvalidated++
		r.logger.Info("day template invalidated", zap.Int64("guard_id", p.GuardID))
	}

	if err := r.validateWorkPeriods(settings, weeks, next, report); err != nil {
		return nil, err
	}

	cutoff := settings.ThisWeekStart.AddDays(-workPeriodRetention)
	deleted, err := r.store.DeleteWorkPeriodsBefore(cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to delete old work periods: %w", err)
	}
	report.DeletedWorkPeriods = deleted

	r.logger.Info("preference templates validated",
		zap.Int("exhibition_invalidated", report.ExhibitionInvalidated),
		zap.Int("day_invalidated", report.DayInvalidated),
		zap.Int("work_period_invalidated", report.WorkPeriodInvalidated),
		zap.Int("carried_forward", report.CarriedForward),
		zap.Int64("deleted_work_periods", report.DeletedWorkPeriods))
	return report, nil
}

func (r *Runner) validateWorkPeriods(settings *domain.SystemSettings, weeks *weekPositions, next []*domain.Position, report *TemplateReport) error {
	nextStart := *settings.NextWeekStart

	templates, err := r.store.ListTemplateWorkPeriods()
	if err != nil {
		return fmt.Errorf("failed to load work period templates: %w", err)
	}

	stale := make(map[int64][]*domain.WorkPeriod)
	legacy := make(map[int64][]int64)
	for _, wp := range templates {
		switch {
		case wp.NextWeekStart == nil:
			legacy[wp.GuardID] = append(legacy[wp.GuardID], wp.ID)
		case wp.NextWeekStart.Before(nextStart):
			stale[wp.GuardID] = append(stale[wp.GuardID], wp)
		}
	}

	current := scheduler.FallbackPeriods(settings, next)
	for _, guardID := range slices.Sorted(maps.Keys(stale)) {
		periods := stale[guardID]
		saved, err := weeks.get(*periods[0].NextWeekStart)
		if err != nil {
			return err
		}

		if scheduler.SamePeriods(scheduler.FallbackPeriods(settings, saved), current) {
			if err := r.store.CarryForwardWorkPeriods(periods, nextStart); err != nil {
				return fmt.Errorf("failed to carry forward work periods of guard %d: %w", guardID, err)
			}
			report.CarriedForward++
			r.logger.Info("work period template carried forward", zap.Int64("guard_id", guardID), zap.Stringer("from", periods[0].NextWeekStart), zap.Stringer("to", nextStart))
			continue
		}

		ids := make([]int64, 0, len(periods))
		for _, wp := range periods {
			ids = append(ids, wp.ID)
		}
		if err := r.store.RetireWorkPeriods(ids, nil); err != nil {
			return fmt.Errorf("failed to retire work periods of guard %d: %w", guardID, err)
		}
		report.WorkPeriodInvalidated++
		r.logger.Info("work period template invalidated", zap.Int64("guard_id", guardID))
	}

	for _, guardID := range slices.Sorted(maps.Keys(legacy)) {
		if err := r.store.RetireWorkPeriods(legacy[guardID], settings.ThisWeekStart); err != nil {
			return fmt.Errorf("failed to retire legacy work periods of guard %d: %w", guardID, err)
		}
		report.WorkPeriodInvalidated++
		r.logger.Info("legacy work period template invalidated", zap.Int64("guard_id", guardID))
	}
	return nil
}

// templateWeek is the week a preference saved at t was meant for.
func (r *Runner) templateWeek(t time.Time) domain.Date {
	return scheduler.MondayOf(domain.DateOf(t.In(r.loc))).AddDays(7)
}
