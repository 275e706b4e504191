package scheduler

import (
	"slices"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

// MatchesPeriods reports whether a position falls into one of the guard's
// (weekday, shift) work periods.
func MatchesPeriods(settings *domain.SystemSettings, p *domain.Position, periods map[domain.PeriodKey]bool) bool {
	weekday := p.Date.Weekday()
	ms, me, as, ae := settings.ShiftTimes(weekday)

	if periods[domain.PeriodKey{Day: weekday, Shift: domain.ShiftMorning}] && p.StartTime < me && p.EndTime > ms {
		return true
	}
	if periods[domain.PeriodKey{Day: weekday, Shift: domain.ShiftAfternoon}] && p.StartTime < ae && p.EndTime > as {
		return true
	}
	return false
}

// FallbackPeriods derives every (weekday, shift) pair offered by the given positions.
// A guard with availability but no stored periods may work any of them.
func FallbackPeriods(settings *domain.SystemSettings, positions []*domain.Position) map[domain.PeriodKey]bool {
	out := make(map[domain.PeriodKey]bool)
	for _, p := range positions {
		weekday := p.Date.Weekday()
		ms, _, as, _ := settings.ShiftTimes(weekday)
		switch p.StartTime {
		case ms:
			out[domain.PeriodKey{Day: weekday, Shift: domain.ShiftMorning}] = true
		case as:
			out[domain.PeriodKey{Day: weekday, Shift: domain.ShiftAfternoon}] = true
		}
	}
	return out
}

func PeriodSet(periods []*domain.WorkPeriod) map[domain.PeriodKey]bool {
	out := make(map[domain.PeriodKey]bool, len(periods))
	for _, wp := range periods {
		out[domain.PeriodKey{Day: wp.DayOfWeek, Shift: wp.ShiftType}] = true
	}
	return out
}

// WorkDays returns the sorted distinct weekdays covered by the periods.
func WorkDays(periods []*domain.WorkPeriod) []int {
	days := make([]int, 0, 7)
	for _, wp := range periods {
		if !slices.Contains(days, wp.DayOfWeek) {
			days = append(days, wp.DayOfWeek)
		}
	}
	slices.Sort(days)
	return days
}

// RankScore maps a 1-based rank in an ordered preference list onto [0, 2].
// Items that are missing, or lists with a single entry, score a neutral 1.0.
func RankScore[T comparable](order []T, item T) float64 {
	n := len(order)
	if n <= 1 {
		return 1.0
	}
	idx := slices.Index(order, item)
	if idx < 0 {
		return 1.0
	}
	rank := idx + 1
	return 2 * float64(n-rank) / float64(n-1)
}

// MaxAvailability is the number of shifts a guard could work in the week
// starting at weekStart, given the museum workdays and non-working days.
func MaxAvailability(settings *domain.SystemSettings, weekStart domain.Date, nonWorking []*domain.NonWorkingDay) int {
	total := len(settings.Workdays) * 2
	weekEnd := weekStart.AddDays(6)
	for _, nwd := range nonWorking {
		if !nwd.Date.Between(weekStart, weekEnd) || !settings.Workdays.Contains(nwd.Date.Weekday()) {
			continue
		}
		if nwd.IsFullDay {
			total -= 2
		} else {
			total--
		}
	}
	return max(total, 0)
}

func sortPositions(positions []*domain.Position) {
	slices.SortStableFunc(positions, func(a, b *domain.Position) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		case a.StartTime != b.StartTime:
			return int(a.StartTime - b.StartTime)
		}
		return int(a.ID - b.ID)
	})
}
