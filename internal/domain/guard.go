package domain

import "time"

type Guard struct {
	ID                    int64      `json:"id"`
	UserID                int64      `json:"user_id"`
	PriorityNumber        *float64   `json:"priority_number"`
	Availability          *int       `json:"availability"`
	AvailabilityUpdatedAt *time.Time `json:"availability_updated_at"`
	User                  *User      `json:"user,omitempty"`
}

func (g *Guard) AvailabilityValue() int {
	if g.Availability == nil {
		return 0
	}
	return *g.Availability
}

func (g *Guard) Priority() float64 {
	if g.PriorityNumber == nil {
		return 0
	}
	return *g.PriorityNumber
}

type ShiftType string

const (
	ShiftMorning   ShiftType = "morning"
	ShiftAfternoon ShiftType = "afternoon"
)

func (s ShiftType) Valid() bool {
	return s == ShiftMorning || s == ShiftAfternoon
}

type WorkPeriod struct {
	ID            int64     `json:"id"`
	GuardID       int64     `json:"guard_id"`
	DayOfWeek     int       `json:"day_of_week"`
	ShiftType     ShiftType `json:"shift_type"`
	IsTemplate    bool      `json:"is_template"`
	NextWeekStart *Date     `json:"next_week_start"`
	CreatedAt     time.Time `json:"created_at"`
}

// PeriodKey identifies a (weekday, shift) pair.
type PeriodKey struct {
	Day   int
	Shift ShiftType
}

type ExhibitionPreference struct {
	ID              int64     `json:"id"`
	GuardID         int64     `json:"guard_id"`
	ExhibitionOrder Int64List `json:"exhibition_order"`
	IsTemplate      bool      `json:"is_template"`
	NextWeekStart   *Date     `json:"next_week_start"`
	CreatedAt       time.Time `json:"created_at"`
}

type DayPreference struct {
	ID            int64     `json:"id"`
	GuardID       int64     `json:"guard_id"`
	DayOrder      IntList   `json:"day_order"`
	IsTemplate    bool      `json:"is_template"`
	NextWeekStart *Date     `json:"next_week_start"`
	CreatedAt     time.Time `json:"created_at"`
}
