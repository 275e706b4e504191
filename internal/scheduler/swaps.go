package scheduler

import (
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

// SwapParty is one side of a swap: the guard's stored work periods and the
// positions the guard currently holds that have not started yet.
type SwapParty struct {
	GuardID int64
	Periods []*domain.WorkPeriod
	Held    []*domain.Position
}

type SwapEligibility struct {
	Eligible bool
	Offers   []*domain.Position
	Reason   string
}

func ineligible(reason string) *SwapEligibility {
	return &SwapEligibility{Offers: []*domain.Position{}, Reason: reason}
}

// CoversPosition reports whether the guard's work periods for the week of p
// include the shift p belongs to.
func CoversPosition(settings *domain.SystemSettings, periods []*domain.WorkPeriod, p *domain.Position) bool {
	week := ResolveWorkPeriods(periods, MondayOf(p.Date))
	if len(week) == 0 {
		return false
	}
	return MatchesPeriods(settings, p, PeriodSet(week))
}

// busyDuring reports whether any held position other than skip overlaps p.
func busyDuring(held []*domain.Position, p *domain.Position, skip int64) bool {
	for _, h := range held {
		if h.ID != skip && h.ID != p.ID && h.Overlaps(p) {
			return true
		}
	}
	return false
}

// CheckSwapEligibility decides whether acceptor may take wanted from requester
// and which of the acceptor's positions the requester could work in return.
// Special events skip the work period checks for the acceptor.
func CheckSwapEligibility(settings *domain.SystemSettings, wanted *domain.Position, requester, acceptor SwapParty) *SwapEligibility {
	if acceptor.GuardID == requester.GuardID {
		return ineligible("cannot accept your own swap request")
	}

	special := wanted.Exhibition != nil && wanted.Exhibition.IsSpecialEvent
	if !special {
		if len(acceptor.Periods) == 0 {
			return ineligible("guard has no work periods configured")
		}
		if !CoversPosition(settings, acceptor.Periods, wanted) {
			return ineligible("guard does not have work period for this position")
		}
	}

	if busyDuring(acceptor.Held, wanted, 0) {
		return ineligible("guard is already assigned in this time slot")
	}

	offers := make([]*domain.Position, 0)
	for _, p := range acceptor.Held {
		if !CoversPosition(settings, requester.Periods, p) {
			continue
		}
		// the requester gives up wanted, so it does not block the trade
		if busyDuring(requester.Held, p, wanted.ID) {
			continue
		}
		offers = append(offers, p)
	}
	if len(offers) == 0 {
		return ineligible("no positions available to offer in return")
	}

	return &SwapEligibility{Eligible: true, Offers: offers}
}

// CanOffer reports whether positionID is among the positions the acceptor may give.
func (e *SwapEligibility) CanOffer(positionID int64) bool {
	for _, p := range e.Offers {
		if p.ID == positionID {
			return true
		}
	}
	return false
}
