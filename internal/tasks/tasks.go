// Package tasks holds the scheduled jobs that drive the weekly staffing cycle.
// Every job is idempotent enough to be re-run by hand from the manage CLI.
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/museum-staffing/shift-manager/backend/internal/cache"
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/notify"
)

// Store is the part of the repository the jobs need.
type Store interface {
	GetActiveSettings() (*domain.SystemSettings, error)
	UpdateSettingsInPlace(s *domain.SystemSettings) error

	GetExhibitionsOverlapping(from, to time.Time) ([]*domain.Exhibition, error)
	ListNonWorkingDaysBetween(from, to domain.Date) ([]*domain.NonWorkingDay, error)

	CreatePositions(positions []*domain.Position) error
	ListPositions(from, to *domain.Date) ([]*domain.Position, error)
	ListPositionStates(from, to domain.Date) ([]*domain.PositionState, error)
	CountPositionsWithoutHistory(from, to domain.Date) (int, error)
	CreateHistories(rows []*domain.PositionHistory) error

	GetActiveGuards() ([]*domain.Guard, error)
	GetGuardsWithAvailabilityUpdated(from, to time.Time) ([]*domain.Guard, error)
	UpdateGuardPriority(guardID int64, priority float64) error

	PointTotals(from, to time.Time) (map[int64]float64, error)
	CreatePoint(p *domain.Point) error
	HasPointsSince(fragment string, since time.Time) (bool, error)

	ListWorkPeriods(guardID int64) ([]*domain.WorkPeriod, error)
	ListTemplateWorkPeriods() ([]*domain.WorkPeriod, error)
	CarryForwardWorkPeriods(periods []*domain.WorkPeriod, weekStart domain.Date) error
	RetireWorkPeriods(ids []int64, weekStart *domain.Date) error
	DeleteWorkPeriodsBefore(d domain.Date) (int64, error)
	ListExhibitionPreferences(guardID *int64) ([]*domain.ExhibitionPreference, error)
	ListDayPreferences(guardID *int64) ([]*domain.DayPreference, error)
	RetireExhibitionPreference(id int64, weekStart domain.Date) error
	RetireDayPreference(id int64, weekStart domain.Date) error

	ListSwapRequests(f domain.SwapFilter) ([]*domain.SwapRequest, error)
	ExpireSwapRequest(id int64, now time.Time, penalty func(s *domain.SwapRequest) *domain.Point) (bool, error)
	FlushExpiredTokens(now time.Time) (int64, error)

	GetAdminEmails() ([]string, error)
	UpsertGroup(g *domain.Group) (bool, error)
	AddAdminsToGroup(groupID int64) (int64, error)
}

type Runner struct {
	store  Store
	cache  cache.Store
	mail   notify.Publisher
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewRunner(store Store, c cache.Store, mail notify.Publisher, logger *zap.Logger, loc *time.Location) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	return &Runner{
		store:  store,
		cache:  c,
		mail:   mail,
		logger: logger,
		loc:    loc,
		now:    time.Now,
	}
}

func (r *Runner) today() domain.Date {
	return domain.DateOf(r.now().In(r.loc))
}

// completes reports whether the latest history action means the guard is
// expected to work the position. Late takeovers are not counted.
func completes(a domain.Action) bool {
	switch a {
	case domain.ActionAssigned, domain.ActionReplaced, domain.ActionSwapped:
		return true
	}
	return false
}

func (r *Runner) invalidateSchedules(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := cache.InvalidateSchedules(ctx, r.cache); err != nil {
		r.logger.Warn("failed to invalidate schedule cache", zap.Error(err))
	}
}

func (r *Runner) invalidateSettings(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if _, err := r.cache.Delete(ctx, cache.SystemSettingsKey); err != nil {
		r.logger.Warn("failed to invalidate settings cache", zap.Error(err))
	}
}
