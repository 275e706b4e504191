package domain

type MailType string

const (
	MailNewAccount        MailType = "new_account"
	MailLatenessReport    MailType = "lateness_report"
	MailAssignmentSummary MailType = "assignment_summary"
	MailGuardReport       MailType = "guard_report"
)

type MailMessage struct {
	Type MailType `json:"type"`
	To   string   `json:"to"`
	Data any      `json:"data"`
}

type NewAccountMailData struct {
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LatenessReportMailData struct {
	GuardName      string  `json:"guard_name"`
	ExhibitionName string  `json:"exhibition_name"`
	Date           string  `json:"date"`
	StartTime      string  `json:"start_time"`
	EstimatedDelay *int    `json:"estimated_delay_minutes"`
	PenaltyPoints  float64 `json:"penalty_points"`
}

type AssignmentSummaryMailData struct {
	WeekStart          string `json:"week_start"`
	WeekEnd            string `json:"week_end"`
	TotalGuards        int    `json:"total_guards"`
	TotalPositions     int    `json:"total_positions"`
	AssignmentsCreated int    `json:"assignments_created"`
	PositionsRemaining int    `json:"positions_remaining"`
	MinimumPositions   int    `json:"minimum_positions"`
	CappingOccurred    bool   `json:"capping_occurred"`
}

type GuardReportMailData struct {
	GuardName           string `json:"guard_name"`
	ExhibitionName      string `json:"exhibition_name"`
	Date                string `json:"date"`
	PositionExplanation string `json:"position_explanation"`
	ReportText          string `json:"report_text"`
}
