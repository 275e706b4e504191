package scheduler

import "github.com/museum-staffing/shift-manager/backend/internal/domain"

// impossible marks a (slot, position) pair that must never be matched.
const impossible = -9999.0

// Parameters weighs the three parts of an assignment score.
type Parameters struct {
	PriorityWeight   float64
	ExhibitionWeight float64
	DayWeight        float64
}

func DefaultParameters() *Parameters {
	return &Parameters{
		PriorityWeight:   0.6,
		ExhibitionWeight: 0.2,
		DayWeight:        0.2,
	}
}

// Candidate is a guard taking part in the automated assignment, with every
// preference already resolved for the target week.
type Candidate struct {
	Guard           *domain.Guard
	Slots           int
	Periods         map[domain.PeriodKey]bool
	ExhibitionOrder []int64
	DayOrder        []int
}

type Assignment struct {
	GuardID    int64   `json:"guard_id"`
	PositionID int64   `json:"position_id"`
	Score      float64 `json:"score"`
}

// Result summarises one automated assignment run.
type Result struct {
	Assignments         []Assignment
	TotalSlots          int
	Proposed            int
	FilteredImpossible  int
	FilteredOverlapping int
}
