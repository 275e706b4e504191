package scheduler

import (
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

// ShiftOf classifies a position by its start time. Positions that start at
// neither shift start (special events) have no shift.
func ShiftOf(settings *domain.SystemSettings, p *domain.Position) (domain.ShiftType, bool) {
	ms, _, as, _ := settings.ShiftTimes(p.Date.Weekday())
	switch p.StartTime {
	case ms:
		return domain.ShiftMorning, true
	case as:
		return domain.ShiftAfternoon, true
	}
	return "", false
}

// MatchesMulticast reports whether a guard holding the given positions is
// addressed by a multicast notification: one held position must fall on the
// notification date and pass its exhibition and shift filters.
func MatchesMulticast(settings *domain.SystemSettings, n *domain.Notification, held []*domain.Position) bool {
	if n.CastType != domain.CastMulticast || n.NotificationDate == nil {
		return false
	}
	for _, p := range held {
		if p.Date != *n.NotificationDate {
			continue
		}
		if n.ExhibitionID != nil && p.ExhibitionID != *n.ExhibitionID {
			continue
		}
		if n.ShiftType != nil {
			if shift, ok := ShiftOf(settings, p); !ok || shift != *n.ShiftType {
				continue
			}
		}
		return true
	}
	return false
}
