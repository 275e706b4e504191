package domain

import "time"

type Position struct {
	ID           int64       `json:"id"`
	ExhibitionID int64       `json:"exhibition_id"`
	Date         Date        `json:"date"`
	StartTime    Clock       `json:"start_time"`
	EndTime      Clock       `json:"end_time"`
	Exhibition   *Exhibition `json:"exhibition,omitempty"`
}

func (p *Position) StartsAt(loc *time.Location) time.Time {
	return p.Date.At(p.StartTime, loc)
}

func (p *Position) EndsAt(loc *time.Location) time.Time {
	return p.Date.At(p.EndTime, loc)
}

func (p *Position) DurationHours() float64 {
	return float64(p.EndTime-p.StartTime) / 60
}

// Overlaps reports a same-day time intersection.
func (p *Position) Overlaps(o *Position) bool {
	return p.Date == o.Date && p.StartTime < o.EndTime && o.StartTime < p.EndTime
}

type Action string

const (
	ActionAssigned          Action = "ASSIGNED"
	ActionCanceled          Action = "CANCELED"
	ActionReplaced          Action = "REPLACED"
	ActionTakenAfterLocking Action = "TAKEN_AFTER_LOCKING"
	ActionSwapped           Action = "SWAPPED"
)

// Holds reports whether a history row with this action leaves the position taken.
func (a Action) Holds() bool {
	switch a {
	case ActionAssigned, ActionReplaced, ActionSwapped, ActionTakenAfterLocking:
		return true
	}
	return false
}

type PositionHistory struct {
	ID         int64     `json:"id"`
	PositionID int64     `json:"position_id"`
	GuardID    int64     `json:"guard_id"`
	Action     Action    `json:"action"`
	ActionTime time.Time `json:"action_time"`
}

// PositionState is a position joined with its latest history row, if any.
type PositionState struct {
	Position *Position
	Latest   *PositionHistory
	Guard    *Guard
}

func (s *PositionState) Taken() bool {
	return s.Latest != nil && s.Latest.Action.Holds()
}
