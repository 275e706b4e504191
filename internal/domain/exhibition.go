package domain

import "time"

type ExhibitionStatus string

const (
	ExhibitionActive   ExhibitionStatus = "active"
	ExhibitionUpcoming ExhibitionStatus = "upcoming"
	ExhibitionFinished ExhibitionStatus = "finished"
)

type Exhibition struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	NumberOfPositions int       `json:"number_of_positions"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	Rules             string    `json:"rules"`
	IsSpecialEvent    bool      `json:"is_special_event"`
	EventStartTime    *Clock    `json:"event_start_time"`
	EventEndTime      *Clock    `json:"event_end_time"`
	OpenOn            IntList   `json:"open_on"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (e *Exhibition) Status(now time.Time) ExhibitionStatus {
	switch {
	case now.Before(e.StartDate):
		return ExhibitionUpcoming
	case now.After(e.EndDate):
		return ExhibitionFinished
	default:
		return ExhibitionActive
	}
}

// ActiveOn reports whether the exhibition runs at any point of the given day.
func (e *Exhibition) ActiveOn(d Date, loc *time.Location) bool {
	dayStart := d.In(loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	return e.StartDate.Before(dayEnd) && !e.EndDate.Before(dayStart)
}
