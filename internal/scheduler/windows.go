package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

var (
	ErrWindowNotInitialised = errors.New("scheduling window is not initialised")
	ErrAssignmentTiming     = errors.New("automated assignment must be between 12 and 67 hours after Monday 00:00")
)

const (
	configStartHour    = 8
	minAssignmentHours = 12.0
	maxAssignmentHours = 67.0
)

// Windows holds the absolute instants of one weekly cycle.
type Windows struct {
	ConfigStart time.Time
	ConfigEnd   time.Time
	Assignment  time.Time
	ManualStart time.Time
	ManualEnd   time.Time
	GraceStart  time.Time
	GraceEnd    time.Time
}

func ComputeWindows(s *domain.SystemSettings, loc *time.Location) (*Windows, error) {
	if s == nil || s.ThisWeekStart == nil {
		return nil, ErrWindowNotInitialised
	}

	monday := s.ThisWeekStart.In(loc)
	assignment := s.ThisWeekStart.AddDays(s.DayForAssignments).At(s.TimeOfAssignments, loc)

	return &Windows{
		ConfigStart: monday.Add(configStartHour * time.Hour),
		ConfigEnd:   assignment.Add(-time.Hour),
		Assignment:  assignment,
		ManualStart: assignment.Add(time.Hour),
		ManualEnd:   assignment.Add(36 * time.Hour),
		GraceStart:  assignment.Add(time.Hour),
		GraceEnd:    assignment.Add(2 * time.Hour),
	}, nil
}

func (w *Windows) InConfig(now time.Time) bool {
	return !now.Before(w.ConfigStart) && now.Before(w.ConfigEnd)
}

func (w *Windows) InManual(now time.Time) bool {
	return !now.Before(w.ManualStart) && now.Before(w.ManualEnd)
}

func (w *Windows) InGrace(now time.Time) bool {
	return !now.Before(w.GraceStart) && now.Before(w.GraceEnd)
}

// ValidateAssignmentTiming checks the offset of the automated assignment from Monday 00:00.
func ValidateAssignmentTiming(day int, at domain.Clock) error {
	if day < 0 || day > 6 {
		return fmt.Errorf("day_for_assignments must be between 0 and 6, got %d", day)
	}
	hours := float64(day*24+at.Hour()) + float64(at.Minute())/60
	if hours < minAssignmentHours || hours > maxAssignmentHours {
		return ErrAssignmentTiming
	}
	return nil
}

type WeekPeriod string

const (
	PeriodThisWeek WeekPeriod = "this_week"
	PeriodNextWeek WeekPeriod = "next_week"
	PeriodNone     WeekPeriod = ""
)

// PeriodOf tells which scheduling week a date belongs to.
func PeriodOf(s *domain.SystemSettings, d domain.Date) WeekPeriod {
	if s.ThisWeekSet() && d.Between(*s.ThisWeekStart, *s.ThisWeekEnd) {
		return PeriodThisWeek
	}
	if s.NextWeekSet() && d.Between(*s.NextWeekStart, *s.NextWeekEnd) {
		return PeriodNextWeek
	}
	return PeriodNone
}

// MondayOf returns the Monday of the week containing d.
func MondayOf(d domain.Date) domain.Date {
	return d.AddDays(-d.Weekday())
}

// ShiftWeeks moves next week into this week, or initialises this week from
// today when no cycle has run yet, and places next week right after it.
func ShiftWeeks(s *domain.SystemSettings, today domain.Date) {
	var thisStart domain.Date
	if s.NextWeekSet() {
		thisStart = *s.NextWeekStart
	} else {
		thisStart = MondayOf(today)
	}
	thisEnd := thisStart.AddDays(6)
	nextStart := thisStart.AddDays(7)
	nextEnd := thisStart.AddDays(13)

	s.ThisWeekStart, s.ThisWeekEnd = &thisStart, &thisEnd
	s.NextWeekStart, s.NextWeekEnd = &nextStart, &nextEnd
}
