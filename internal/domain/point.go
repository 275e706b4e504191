package domain

import "time"

type Point struct {
	ID          int64     `json:"id"`
	GuardID     int64     `json:"guard_id"`
	Points      float64   `json:"points"`
	DateAwarded time.Time `json:"date_awarded"`
	Explanation string    `json:"explanation"`
}

type NonWorkingDay struct {
	ID              int64      `json:"id"`
	Date            Date       `json:"date"`
	IsFullDay       bool       `json:"is_full_day"`
	NonWorkingShift *ShiftType `json:"non_working_shift"`
	Reason          string     `json:"reason"`
	CreatedAt       time.Time  `json:"created_at"`
}

type HourlyRate struct {
	ID            int64     `json:"id"`
	Rate          float64   `json:"rate"`
	EffectiveFrom time.Time `json:"effective_from"`
	ChangedByID   *int64    `json:"changed_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type Report struct {
	ID                  int64     `json:"id"`
	GuardID             int64     `json:"guard_id"`
	PositionID          int64     `json:"position_id"`
	PositionExplanation string    `json:"position_explanation"`
	ReportText          string    `json:"report_text"`
	CreatedAt           time.Time `json:"created_at"`
	Guard               *Guard    `json:"guard,omitempty"`
	Position            *Position `json:"position,omitempty"`
}

type Group struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

const MuseumAdminGroup = "Museum Admin"
