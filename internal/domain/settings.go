package domain

import "time"

type SystemSettings struct {
	ID       int64   `json:"id"`
	Workdays IntList `json:"workdays"`

	ThisWeekStart *Date `json:"this_week_start"`
	ThisWeekEnd   *Date `json:"this_week_end"`
	NextWeekStart *Date `json:"next_week_start"`
	NextWeekEnd   *Date `json:"next_week_end"`

	DayForAssignments     int   `json:"day_for_assignments"`
	TimeOfAssignments     Clock `json:"time_of_assignments"`
	WeekdayMorningStart   Clock `json:"weekday_morning_start"`
	WeekdayMorningEnd     Clock `json:"weekday_morning_end"`
	WeekdayAfternoonStart Clock `json:"weekday_afternoon_start"`
	WeekdayAfternoonEnd   Clock `json:"weekday_afternoon_end"`
	WeekendMorningStart   Clock `json:"weekend_morning_start"`
	WeekendMorningEnd     Clock `json:"weekend_morning_end"`
	WeekendAfternoonStart Clock `json:"weekend_afternoon_start"`
	WeekendAfternoonEnd   Clock `json:"weekend_afternoon_end"`

	MinimalNumberOfPositionsInWeek int `json:"minimal_number_of_positions_in_week"`
	PointsLifeWeeks                int `json:"points_life_weeks"`

	AwardForPositionCompletion              float64 `json:"award_for_position_completion"`
	AwardForSundayPositionCompletion        float64 `json:"award_for_sunday_position_completion"`
	AwardForJumpingInOnCancelledPosition    float64 `json:"award_for_jumping_in_on_cancelled_position"`
	PenaltyForBeingLateWithNotification     float64 `json:"penalty_for_being_late_with_notification"`
	PenaltyForBeingLateWithoutNotification  float64 `json:"penalty_for_being_late_without_notification"`
	PenaltyForCancellationOnPositionDay     float64 `json:"penalty_for_position_cancellation_on_the_position_day"`
	PenaltyForCancellationBeforePositionDay float64 `json:"penalty_for_position_cancellation_before_the_position_day"`
	PenaltyForAssigningLessThanMinimal      float64 `json:"penalty_for_assigning_less_then_minimal_positions"`

	HourlyRate  float64   `json:"hourly_rate"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedByID *int64    `json:"updated_by"`
	IsActive    bool      `json:"is_active"`
	Version     int32     `json:"-"`
}

// DefaultSystemSettings mirrors the values a fresh installation starts with.
func DefaultSystemSettings() *SystemSettings {
	return &SystemSettings{
		Workdays:                                IntList{1, 2, 3, 4, 5, 6},
		DayForAssignments:                       2,
		TimeOfAssignments:                       NewClock(19, 0),
		WeekdayMorningStart:                     NewClock(11, 0),
		WeekdayMorningEnd:                       NewClock(15, 0),
		WeekdayAfternoonStart:                   NewClock(15, 0),
		WeekdayAfternoonEnd:                     NewClock(19, 0),
		WeekendMorningStart:                     NewClock(11, 0),
		WeekendMorningEnd:                       NewClock(14, 30),
		WeekendAfternoonStart:                   NewClock(14, 30),
		WeekendAfternoonEnd:                     NewClock(18, 0),
		MinimalNumberOfPositionsInWeek:          1,
		PointsLifeWeeks:                         4,
		AwardForPositionCompletion:              2.00,
		AwardForSundayPositionCompletion:        0.50,
		AwardForJumpingInOnCancelledPosition:    2.00,
		PenaltyForBeingLateWithNotification:     -2.00,
		PenaltyForBeingLateWithoutNotification:  -6.00,
		PenaltyForCancellationOnPositionDay:     -5.00,
		PenaltyForCancellationBeforePositionDay: -2.50,
		PenaltyForAssigningLessThanMinimal:      -2.00,
		HourlyRate:                              6.56,
		IsActive:                                true,
	}
}

// ShiftTimes returns the morning and afternoon ranges for a weekday (0 Monday).
func (s *SystemSettings) ShiftTimes(weekday int) (morningStart, morningEnd, afternoonStart, afternoonEnd Clock) {
	if weekday >= 5 {
		return s.WeekendMorningStart, s.WeekendMorningEnd, s.WeekendAfternoonStart, s.WeekendAfternoonEnd
	}
	return s.WeekdayMorningStart, s.WeekdayMorningEnd, s.WeekdayAfternoonStart, s.WeekdayAfternoonEnd
}

func (s *SystemSettings) NextWeekSet() bool {
	return s.NextWeekStart != nil && s.NextWeekEnd != nil
}

func (s *SystemSettings) ThisWeekSet() bool {
	return s.ThisWeekStart != nil && s.ThisWeekEnd != nil
}
