package tasks

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

// fakeStore keeps everything in memory. Position states are derived from the
// stored positions and history rows the same way the database view is.
type fakeStore struct {
	settings       *domain.SystemSettings
	settingsSaves  int
	exhibitions    []*domain.Exhibition
	nonWorking     []*domain.NonWorkingDay
	positions      []*domain.Position
	histories      []*domain.PositionHistory
	guards         []*domain.Guard
	availableGuard []*domain.Guard
	priorities     map[int64]float64
	totals         map[int64]float64
	points         []*domain.Point
	hasPoints      bool
	workPeriods    []*domain.WorkPeriod
	carried        map[int64]domain.Date
	retired        map[int64]*domain.Date
	deleteCutoff   *domain.Date
	exhibitionPref []*domain.ExhibitionPreference
	dayPref        []*domain.DayPreference
	retiredPrefs   map[int64]domain.Date
	adminEmails    []string
	groups         []*domain.Group
	groupAdmins    map[int64]bool
	swaps          []*domain.SwapRequest
	blacklist      map[string]time.Time
}

func newFakeStore(settings *domain.SystemSettings) *fakeStore {
	return &fakeStore{
		settings:     settings,
		priorities:   make(map[int64]float64),
		carried:      make(map[int64]domain.Date),
		retired:      make(map[int64]*domain.Date),
		retiredPrefs: make(map[int64]domain.Date),
		groupAdmins:  make(map[int64]bool),
		blacklist:    make(map[string]time.Time),
	}
}

func (f *fakeStore) GetActiveSettings() (*domain.SystemSettings, error) {
	s := *f.settings
	return &s, nil
}

func (f *fakeStore) UpdateSettingsInPlace(s *domain.SystemSettings) error {
	saved := *s
	f.settings = &saved
	f.settingsSaves++
	return nil
}

func (f *fakeStore) GetExhibitionsOverlapping(from, to time.Time) ([]*domain.Exhibition, error) {
	out := make([]*domain.Exhibition, 0)
	for _, e := range f.exhibitions {
		if e.StartDate.Before(to) && !e.EndDate.Before(from) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) ListNonWorkingDaysBetween(from, to domain.Date) ([]*domain.NonWorkingDay, error) {
	out := make([]*domain.NonWorkingDay, 0)
	for _, d := range f.nonWorking {
		if d.Date.Between(from, to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) CreatePositions(positions []*domain.Position) error {
	for _, p := range positions {
		p.ID = int64(len(f.positions) + 1)
		f.positions = append(f.positions, p)
	}
	return nil
}

func (f *fakeStore) ListPositions(from, to *domain.Date) ([]*domain.Position, error) {
	out := make([]*domain.Position, 0)
	for _, p := range f.positions {
		if (from == nil || !p.Date.Before(*from)) && (to == nil || !p.Date.After(*to)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) latest(positionID int64) *domain.PositionHistory {
	var latest *domain.PositionHistory
	for _, h := range f.histories {
		if h.PositionID == positionID {
			latest = h
		}
	}
	return latest
}

func (f *fakeStore) ListPositionStates(from, to domain.Date) ([]*domain.PositionState, error) {
	out := make([]*domain.PositionState, 0)
	for _, p := range f.positions {
		if p.Date.Between(from, to) {
			out = append(out, &domain.PositionState{Position: p, Latest: f.latest(p.ID)})
		}
	}
	return out, nil
}

func (f *fakeStore) CountPositionsWithoutHistory(from, to domain.Date) (int, error) {
	n := 0
	for _, p := range f.positions {
		if p.Date.Between(from, to) && f.latest(p.ID) == nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateHistories(rows []*domain.PositionHistory) error {
	for _, h := range rows {
		h.ID = int64(len(f.histories) + 1)
		f.histories = append(f.histories, h)
	}
	return nil
}

func (f *fakeStore) GetActiveGuards() ([]*domain.Guard, error) {
	return f.guards, nil
}

func (f *fakeStore) GetGuardsWithAvailabilityUpdated(_, _ time.Time) ([]*domain.Guard, error) {
	return f.availableGuard, nil
}

func (f *fakeStore) UpdateGuardPriority(guardID int64, priority float64) error {
	f.priorities[guardID] = priority
	return nil
}

func (f *fakeStore) PointTotals(_, _ time.Time) (map[int64]float64, error) {
	out := make(map[int64]float64, len(f.totals))
	for k, v := range f.totals {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) CreatePoint(p *domain.Point) error {
	p.ID = int64(len(f.points) + 1)
	f.points = append(f.points, p)
	return nil
}

func (f *fakeStore) HasPointsSince(_ string, _ time.Time) (bool, error) {
	return f.hasPoints, nil
}

func (f *fakeStore) ListWorkPeriods(guardID int64) ([]*domain.WorkPeriod, error) {
	out := make([]*domain.WorkPeriod, 0)
	for _, wp := range f.workPeriods {
		if wp.GuardID == guardID {
			out = append(out, wp)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTemplateWorkPeriods() ([]*domain.WorkPeriod, error) {
	out := make([]*domain.WorkPeriod, 0)
	for _, wp := range f.workPeriods {
		if wp.IsTemplate {
			out = append(out, wp)
		}
	}
	return out, nil
}

func (f *fakeStore) CarryForwardWorkPeriods(periods []*domain.WorkPeriod, weekStart domain.Date) error {
	for _, wp := range periods {
		f.carried[wp.ID] = weekStart
	}
	return nil
}

func (f *fakeStore) RetireWorkPeriods(ids []int64, weekStart *domain.Date) error {
	for _, id := range ids {
		f.retired[id] = weekStart
	}
	return nil
}

func (f *fakeStore) DeleteWorkPeriodsBefore(d domain.Date) (int64, error) {
	f.deleteCutoff = &d
	return 3, nil
}

func (f *fakeStore) ListExhibitionPreferences(_ *int64) ([]*domain.ExhibitionPreference, error) {
	return f.exhibitionPref, nil
}

func (f *fakeStore) ListDayPreferences(_ *int64) ([]*domain.DayPreference, error) {
	return f.dayPref, nil
}

func (f *fakeStore) RetireExhibitionPreference(id int64, weekStart domain.Date) error {
	f.retiredPrefs[id] = weekStart
	return nil
}

func (f *fakeStore) RetireDayPreference(id int64, weekStart domain.Date) error {
	f.retiredPrefs[-id] = weekStart
	return nil
}

func (f *fakeStore) GetAdminEmails() ([]string, error) {
	return f.adminEmails, nil
}

func (f *fakeStore) UpsertGroup(g *domain.Group) (bool, error) {
	for _, existing := range f.groups {
		if existing.Name == g.Name {
			g.ID = existing.ID
			existing.Permissions = slices.Clone(g.Permissions)
			return false, nil
		}
	}
	g.ID = int64(len(f.groups) + 1)
	f.groups = append(f.groups, g)
	return true, nil
}

func (f *fakeStore) AddAdminsToGroup(groupID int64) (int64, error) {
	if f.groupAdmins[groupID] {
		return 0, nil
	}
	f.groupAdmins[groupID] = true
	return 1, nil
}

func (f *fakeStore) ListSwapRequests(filter domain.SwapFilter) ([]*domain.SwapRequest, error) {
	out := make([]*domain.SwapRequest, 0)
	for _, s := range f.swaps {
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if filter.ExpiresNotAfter != nil && s.ExpiresAt.After(*filter.ExpiresNotAfter) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) ExpireSwapRequest(id int64, now time.Time, penalty func(s *domain.SwapRequest) *domain.Point) (bool, error) {
	for _, s := range f.swaps {
		if s.ID != id {
			continue
		}
		if s.Status != domain.SwapPending || s.ExpiresAt.After(now) {
			return false, nil
		}
		s.Status = domain.SwapExpired
		latest := f.latest(s.PositionToSwapID)
		if latest == nil || latest.GuardID != s.RequestingGuardID || !latest.Action.Holds() {
			return true, nil
		}
		if err := f.CreateHistories([]*domain.PositionHistory{{PositionID: s.PositionToSwapID, GuardID: s.RequestingGuardID, Action: domain.ActionCanceled, ActionTime: now}}); err != nil {
			return false, err
		}
		if p := penalty(s); p != nil {
			return true, f.CreatePoint(p)
		}
		return true, nil
	}
	return false, nil
}

func (f *fakeStore) FlushExpiredTokens(now time.Time) (int64, error) {
	var n int64
	for jti, expiresAt := range f.blacklist {
		if !expiresAt.After(now) {
			delete(f.blacklist, jti)
			n++
		}
	}
	return n, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []domain.MailMessage
}

func (p *recordingPublisher) Publish(_ context.Context, msg domain.MailMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return nil
}
