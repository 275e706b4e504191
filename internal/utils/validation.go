package utils

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/scheduler"
)

func ValidateWorkdays(days []int) error {
	if len(days) == 0 {
		return errors.New("workdays must contain at least one day")
	}
	seen := make(map[int]bool, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return fmt.Errorf("workday %d must be between 0 (Monday) and 6 (Sunday)", d)
		}
		if seen[d] {
			return fmt.Errorf("workday %d is listed twice", d)
		}
		seen[d] = true
	}
	return nil
}

// ValidateShiftTimes checks that every shift has positive length and that the
// afternoon does not start before the morning ends.
func ValidateShiftTimes(s *domain.SystemSettings) error {
	ranges := []struct {
		name           string
		ms, me, as, ae domain.Clock
	}{
		{"weekday", s.WeekdayMorningStart, s.WeekdayMorningEnd, s.WeekdayAfternoonStart, s.WeekdayAfternoonEnd},
		{"weekend", s.WeekendMorningStart, s.WeekendMorningEnd, s.WeekendAfternoonStart, s.WeekendAfternoonEnd},
	}

	for _, r := range ranges {
		if r.ms >= r.me {
			return fmt.Errorf("%s morning shift must end after it starts", r.name)
		}
		if r.as >= r.ae {
			return fmt.Errorf("%s afternoon shift must end after it starts", r.name)
		}
		if r.as < r.me {
			return fmt.Errorf("%s afternoon shift must not start before the morning shift ends", r.name)
		}
	}
	return nil
}

func ValidateSettings(s *domain.SystemSettings) error {
	if err := ValidateWorkdays(s.Workdays); err != nil {
		return err
	}
	if err := ValidateShiftTimes(s); err != nil {
		return err
	}
	if err := scheduler.ValidateAssignmentTiming(s.DayForAssignments, s.TimeOfAssignments); err != nil {
		return err
	}
	if s.PointsLifeWeeks < 1 {
		return errors.New("points_life_weeks must be at least 1")
	}
	if s.MinimalNumberOfPositionsInWeek < 0 {
		return errors.New("minimal_number_of_positions_in_week must not be negative")
	}
	if s.HourlyRate < 0 {
		return errors.New("hourly_rate must not be negative")
	}
	return nil
}

// ValidateExhibition checks the date range, the open days against the museum
// workdays and the event times of special events.
func ValidateExhibition(e *domain.Exhibition, workdays domain.IntList) error {
	if e.EndDate.Before(e.StartDate) {
		return errors.New("end_date must not be before start_date")
	}
	for _, d := range e.OpenOn {
		if !workdays.Contains(d) {
			return fmt.Errorf("exhibition days must be a subset of museum workdays %v, got %v", []int(workdays), []int(e.OpenOn))
		}
	}
	if e.IsSpecialEvent {
		if e.EventStartTime == nil || e.EventEndTime == nil {
			return errors.New("special events need event_start_time and event_end_time")
		}
		if *e.EventStartTime >= *e.EventEndTime {
			return errors.New("event_end_time must be after event_start_time")
		}
	}
	return nil
}

func ValidatePosition(p *domain.Position) error {
	if p.StartTime >= p.EndTime {
		return errors.New("end_time must be after start_time")
	}
	return nil
}

// SetDiff reports which expected values are missing from provided and which
// provided values were not expected. Both results are sorted.
func SetDiff[T cmp.Ordered](expected, provided []T) (missing, extra []T) {
	missing = make([]T, 0)
	extra = make([]T, 0)
	for _, v := range expected {
		if !slices.Contains(provided, v) && !slices.Contains(missing, v) {
			missing = append(missing, v)
		}
	}
	for _, v := range provided {
		if !slices.Contains(expected, v) && !slices.Contains(extra, v) {
			extra = append(extra, v)
		}
	}
	slices.Sort(missing)
	slices.Sort(extra)
	return missing, extra
}
