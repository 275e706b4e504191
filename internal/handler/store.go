package handler

import (
	"context"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/repository"
)

// Store is the slice of *repository.Repository the HTTP layer depends on.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(user *domain.User) error
	GetUserByID(id int64) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
	GetAllUsers(includeInactive bool) ([]*domain.User, error)
	UpdateUser(user *domain.User) error
	DeactivateUser(id int64) error
	UpdateLastLogin(id int64, at time.Time) error
	GetAdminEmails() ([]string, error)

	BlacklistToken(jti string, userID int64, expiresAt time.Time) error
	IsTokenBlacklisted(jti string) (bool, error)

	GetActiveSettings() (*domain.SystemSettings, error)
	GetSettingsByID(id int64) (*domain.SystemSettings, error)
	ListSettings() ([]*domain.SystemSettings, error)
	CreateSettingsVersion(s *domain.SystemSettings) error
	ListHourlyRates() ([]*domain.HourlyRate, error)
	GetHourlyRateByID(id int64) (*domain.HourlyRate, error)

	GetGuardByID(id int64) (*domain.Guard, error)
	GetGuardByUserID(userID int64) (*domain.Guard, error)
	GetActiveGuards() ([]*domain.Guard, error)
	UpdateGuardAvailability(guardID int64, availability int, at time.Time) error

	ListWorkPeriods(guardID int64) ([]*domain.WorkPeriod, error)
	ReplaceWorkPeriods(guardID int64, periods []domain.PeriodKey, isTemplate bool, nextWeekStart domain.Date) ([]*domain.WorkPeriod, error)
	DeleteTemplateWorkPeriods(guardID int64) error
	SaveExhibitionPreference(p *domain.ExhibitionPreference) error
	DeleteExhibitionPreferences(guardID int64) error
	SaveDayPreference(p *domain.DayPreference) error
	DeleteDayPreferences(guardID int64) error

	CreateExhibition(e *domain.Exhibition) error
	GetExhibitionByID(id int64) (*domain.Exhibition, error)
	GetAllExhibitions() ([]*domain.Exhibition, error)
	UpdateExhibition(e *domain.Exhibition) error
	DeleteExhibition(id int64) error

	CreatePosition(p *domain.Position) error
	GetPositionByID(id int64) (*domain.Position, error)
	ListPositions(from, to *domain.Date) ([]*domain.Position, error)
	ListPositionStates(from, to domain.Date) ([]*domain.PositionState, error)
	UpdatePosition(p *domain.Position) error
	DeletePosition(id int64) error

	ListHistory(guardID *int64) ([]*domain.PositionHistory, error)
	GetLatestHistory(positionID int64) (*domain.PositionHistory, error)
	GetHeldPositions(guardID int64, from, to domain.Date) ([]*domain.Position, error)
	WithLockedPosition(id int64, fn func(p *domain.Position, w repository.PositionWriter) error) error
	WithPositionWriter(fn func(w repository.PositionWriter) error) error

	CreateSwapRequest(s *domain.SwapRequest) error
	GetSwapRequestByID(id int64) (*domain.SwapRequest, error)
	ListSwapRequests(f domain.SwapFilter) ([]*domain.SwapRequest, error)
	UpdateSwapRequest(s *domain.SwapRequest) error
	DeleteSwapRequest(id int64) error
	WithLockedSwapRequest(id int64, fn func(s *domain.SwapRequest, w repository.SwapWriter) error) error

	CreateNotification(n *domain.Notification) error
	GetNotificationByID(id int64) (*domain.Notification, error)
	ListNotifications(activeAt *time.Time) ([]*domain.Notification, error)
	UpdateNotification(n *domain.Notification) error
	DeleteNotification(id int64) error

	CreatePoint(p *domain.Point) error
	GetPointByID(id int64) (*domain.Point, error)
	ListPoints(guardID *int64) ([]*domain.Point, error)
	DeletePoint(id int64) error

	CreateNonWorkingDay(d *domain.NonWorkingDay, affects func(*domain.Position) bool) (int, error)
	GetNonWorkingDayByID(id int64) (*domain.NonWorkingDay, error)
	ListNonWorkingDays(from *domain.Date) ([]*domain.NonWorkingDay, error)
	ListNonWorkingDaysBetween(from, to domain.Date) ([]*domain.NonWorkingDay, error)
	UpdateNonWorkingDay(d *domain.NonWorkingDay, affects func(*domain.Position) bool) (int, error)
	DeleteNonWorkingDay(id int64) error

	CreateReport(rep *domain.Report) error
	GetReportByID(id int64) (*domain.Report, error)
	ListReports(exhibitionID *int64, oldestFirst bool) ([]*domain.Report, error)
}

var _ Store = (*repository.Repository)(nil)
