package scheduler

import (
	"fmt"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/teambition/rrule-go"
)

var rruleWeekdays = [7]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// OpenDays enumerates the days in [from, to] on which both the museum and the
// exhibition are open.
func OpenDays(workdays, openOn domain.IntList, from, to domain.Date) ([]domain.Date, error) {
	byWeekday := make([]rrule.Weekday, 0, 7)
	for day := range 7 {
		if workdays.Contains(day) && openOn.Contains(day) {
			byWeekday = append(byWeekday, rruleWeekdays[day])
		}
	}
	if len(byWeekday) == 0 {
		return nil, nil
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.DAILY,
		Dtstart:   from.In(time.UTC),
		Until:     to.In(time.UTC),
		Byweekday: byWeekday,
	})
	if err != nil {
		return nil, fmt.Errorf("building open-day rule: %w", err)
	}

	occurrences := rule.All()
	out := make([]domain.Date, 0, len(occurrences))
	for _, t := range occurrences {
		out = append(out, domain.DateOf(t))
	}
	return out, nil
}

// GeneratePositions builds the positions of next week. Positions carry their
// exhibition so callers can persist them directly.
func GeneratePositions(s *domain.SystemSettings, exhibitions []*domain.Exhibition, nonWorking []*domain.NonWorkingDay, loc *time.Location) ([]*domain.Position, error) {
	if !s.NextWeekSet() {
		return nil, ErrWindowNotInitialised
	}
	start, end := *s.NextWeekStart, *s.NextWeekEnd

	fullDays := make(map[domain.Date]bool)
	noMorning := make(map[domain.Date]bool)
	noAfternoon := make(map[domain.Date]bool)
	for _, nwd := range nonWorking {
		switch {
		case nwd.IsFullDay:
			fullDays[nwd.Date] = true
		case nwd.NonWorkingShift != nil && *nwd.NonWorkingShift == domain.ShiftMorning:
			noMorning[nwd.Date] = true
		case nwd.NonWorkingShift != nil && *nwd.NonWorkingShift == domain.ShiftAfternoon:
			noAfternoon[nwd.Date] = true
		}
	}

	positions := make([]*domain.Position, 0)
	for _, e := range exhibitions {
		if e.IsSpecialEvent {
			if e.EventStartTime == nil || e.EventEndTime == nil {
				continue
			}
			eventDate := domain.DateOf(e.StartDate.In(loc))
			if !eventDate.Between(start, end) {
				continue
			}
			for range e.NumberOfPositions {
				positions = append(positions, &domain.Position{
					ExhibitionID: e.ID,
					Date:         eventDate,
					StartTime:    *e.EventStartTime,
					EndTime:      *e.EventEndTime,
					Exhibition:   e,
				})
			}
			continue
		}

		days, err := OpenDays(s.Workdays, e.OpenOn, start, end)
		if err != nil {
			return nil, err
		}
		for _, day := range days {
			if fullDays[day] || !e.ActiveOn(day, loc) {
				continue
			}
			ms, me, as, ae := s.ShiftTimes(day.Weekday())
			for range e.NumberOfPositions {
				if !noMorning[day] {
					positions = append(positions, &domain.Position{
						ExhibitionID: e.ID, Date: day, StartTime: ms, EndTime: me, Exhibition: e,
					})
				}
				if !noAfternoon[day] {
					positions = append(positions, &domain.Position{
						ExhibitionID: e.ID, Date: day, StartTime: as, EndTime: ae, Exhibition: e,
					})
				}
			}
		}
	}

	return positions, nil
}

// AffectedByNonWorkingDay reports whether a position is cancelled by a non-working day.
func AffectedByNonWorkingDay(s *domain.SystemSettings, p *domain.Position, nwd *domain.NonWorkingDay) bool {
	if p.Date != nwd.Date {
		return false
	}
	if nwd.IsFullDay || nwd.NonWorkingShift == nil {
		return true
	}
	ms, me, as, ae := s.ShiftTimes(p.Date.Weekday())
	if *nwd.NonWorkingShift == domain.ShiftMorning {
		return p.StartTime < me && p.EndTime > ms
	}
	return p.StartTime < ae && p.EndTime > as
}
