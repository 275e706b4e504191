package scheduler

import (
	"maps"
	"slices"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

// ResolveWorkPeriods picks the periods that apply to the week starting at
// weekStart: rows stored for that week first, then the template. It returns
// nil when the guard has neither.
func ResolveWorkPeriods(periods []*domain.WorkPeriod, weekStart domain.Date) []*domain.WorkPeriod {
	var week, template []*domain.WorkPeriod
	for _, wp := range periods {
		switch {
		case wp.NextWeekStart != nil && *wp.NextWeekStart == weekStart:
			week = append(week, wp)
		case wp.IsTemplate:
			template = append(template, wp)
		}
	}
	if len(week) > 0 {
		return week
	}
	return template
}

// ResolveExhibitionOrder prefers the week-specific order over the template.
func ResolveExhibitionOrder(prefs []*domain.ExhibitionPreference, guardID int64, weekStart domain.Date) []int64 {
	var template []int64
	for _, p := range prefs {
		if p.GuardID != guardID {
			continue
		}
		if !p.IsTemplate && p.NextWeekStart != nil && *p.NextWeekStart == weekStart {
			return p.ExhibitionOrder
		}
		if p.IsTemplate && template == nil {
			template = p.ExhibitionOrder
		}
	}
	return template
}

func ResolveDayOrder(prefs []*domain.DayPreference, guardID int64, weekStart domain.Date) []int {
	var template []int
	for _, p := range prefs {
		if p.GuardID != guardID {
			continue
		}
		if !p.IsTemplate && p.NextWeekStart != nil && *p.NextWeekStart == weekStart {
			return p.DayOrder
		}
		if p.IsTemplate && template == nil {
			template = p.DayOrder
		}
	}
	return template
}

// ExhibitionSet returns the sorted ids of exhibitions that have positions.
func ExhibitionSet(positions []*domain.Position) []int64 {
	seen := make(map[int64]bool)
	for _, p := range positions {
		seen[p.ExhibitionID] = true
	}
	return slices.Sorted(maps.Keys(seen))
}

// WeekdaySet returns the sorted weekdays that have positions.
func WeekdaySet(positions []*domain.Position) []int {
	seen := make(map[int]bool)
	for _, p := range positions {
		seen[p.Date.Weekday()] = true
	}
	return slices.Sorted(maps.Keys(seen))
}

// SamePeriods reports whether two period sets are identical.
func SamePeriods(a, b map[domain.PeriodKey]bool) bool {
	return maps.Equal(a, b)
}
