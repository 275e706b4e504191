package seed

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/scheduler"
	"github.com/museum-staffing/shift-manager/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Store is what seeding needs from the repository.
type Store interface {
	GetActiveSettings() (*domain.SystemSettings, error)
	CreateSettingsVersion(s *domain.SystemSettings) error
	CreateUser(user *domain.User) error
	GetUserByUsername(username string) (*domain.User, error)
	GetGuardByUserID(userID int64) (*domain.Guard, error)
	UpdateGuardAvailability(guardID int64, availability int, at time.Time) error
	ReplaceWorkPeriods(guardID int64, periods []domain.PeriodKey, isTemplate bool, nextWeekStart domain.Date) ([]*domain.WorkPeriod, error)
	CreateExhibition(e *domain.Exhibition) error
	CreateNonWorkingDay(d *domain.NonWorkingDay, affects func(*domain.Position) bool) (int, error)
}

type GuardFixture struct {
	Username     string `yaml:"username"`
	FirstName    string `yaml:"first_name"`
	LastName     string `yaml:"last_name"`
	Email        string `yaml:"email"`
	Availability int    `yaml:"availability"`
	WorkPeriods  []struct {
		Day   int              `yaml:"day"`
		Shift domain.ShiftType `yaml:"shift"`
	} `yaml:"work_periods"`
}

type ExhibitionFixture struct {
	Name              string `yaml:"name"`
	NumberOfPositions int    `yaml:"number_of_positions"`
	StartDate         string `yaml:"start_date"`
	EndDate           string `yaml:"end_date"`
	Rules             string `yaml:"rules"`
	OpenOn            []int  `yaml:"open_on"`
	IsSpecialEvent    bool   `yaml:"is_special_event"`
	EventStartTime    string `yaml:"event_start_time"`
	EventEndTime      string `yaml:"event_end_time"`
}

type NonWorkingDayFixture struct {
	Date   string            `yaml:"date"`
	Shift  *domain.ShiftType `yaml:"shift"`
	Reason string            `yaml:"reason"`
}

// Fixture is the demo data set kept under data/.
type Fixture struct {
	Guards         []GuardFixture         `yaml:"guards"`
	Exhibitions    []ExhibitionFixture    `yaml:"exhibitions"`
	NonWorkingDays []NonWorkingDayFixture `yaml:"non_working_days"`
}

func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f := &Fixture{}
	if err := yaml.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

type Seeder struct {
	store    Store
	password string
	loc      *time.Location
	now      func() time.Time
}

func NewSeeder(store Store, password string, loc *time.Location) *Seeder {
	return &Seeder{store: store, password: password, loc: loc, now: time.Now}
}

type Result struct {
	Guards         int
	Exhibitions    int
	NonWorkingDays int
}

func (s *Seeder) settings() (*domain.SystemSettings, error) {
	settings, err := s.store.GetActiveSettings()
	if errors.Is(err, sql.ErrNoRows) {
		settings = domain.DefaultSystemSettings()
		err = s.store.CreateSettingsVersion(settings)
	}
	return settings, err
}

// weekStart is the Monday the seeded work periods are tagged with.
func (s *Seeder) weekStart(settings *domain.SystemSettings) domain.Date {
	if settings.NextWeekSet() {
		return *settings.NextWeekStart
	}
	return scheduler.MondayOf(domain.DateOf(s.now().In(s.loc))).AddDays(7)
}

// Apply inserts the fixture. Guards whose username exists already are skipped,
// so running it twice is harmless apart from exhibitions and days off.
func (s *Seeder) Apply(f *Fixture) (*Result, error) {
	settings, err := s.settings()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, g := range f.Guards {
		if _, err := s.store.GetUserByUsername(g.Username); err == nil {
			slog.Info("guard already exists", "username", g.Username)
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			return res, err
		}

		user := &domain.User{
			Username:     g.Username,
			PasswordHash: string(hash),
			FirstName:    g.FirstName,
			LastName:     g.LastName,
			Email:        g.Email,
			Role:         domain.RoleGuard,
			IsActive:     true,
		}
		periods := make([]domain.PeriodKey, 0, len(g.WorkPeriods))
		for _, p := range g.WorkPeriods {
			periods = append(periods, domain.PeriodKey{Day: p.Day, Shift: p.Shift})
		}
		if err := s.createGuard(user, g.Availability, periods, s.weekStart(settings)); err != nil {
			return res, fmt.Errorf("guard %s: %w", g.Username, err)
		}
		res.Guards++
	}

	for _, e := range f.Exhibitions {
		exhibition, err := s.exhibition(e, settings)
		if err != nil {
			return res, fmt.Errorf("exhibition %s: %w", e.Name, err)
		}
		if err := s.store.CreateExhibition(exhibition); err != nil {
			return res, fmt.Errorf("exhibition %s: %w", e.Name, err)
		}
		res.Exhibitions++
	}

	for _, d := range f.NonWorkingDays {
		date, err := domain.ParseDate(d.Date)
		if err != nil {
			return res, err
		}
		nwd := &domain.NonWorkingDay{Date: date, IsFullDay: d.Shift == nil, NonWorkingShift: d.Shift, Reason: d.Reason}
		if _, err := s.store.CreateNonWorkingDay(nwd, func(p *domain.Position) bool {
			return scheduler.AffectedByNonWorkingDay(settings, p, nwd)
		}); err != nil {
			return res, fmt.Errorf("non-working day %s: %w", d.Date, err)
		}
		res.NonWorkingDays++
	}

	return res, nil
}

func (s *Seeder) exhibition(e ExhibitionFixture, settings *domain.SystemSettings) (*domain.Exhibition, error) {
	start, err := domain.ParseDate(e.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseDate(e.EndDate)
	if err != nil {
		return nil, err
	}

	exhibition := &domain.Exhibition{
		Name:              e.Name,
		NumberOfPositions: max(e.NumberOfPositions, 1),
		StartDate:         start.In(s.loc),
		EndDate:           end.At(domain.NewClock(23, 59), s.loc),
		Rules:             e.Rules,
		IsSpecialEvent:    e.IsSpecialEvent,
		OpenOn:            e.OpenOn,
	}
	if exhibition.OpenOn == nil {
		exhibition.OpenOn = settings.Workdays
	}
	if e.IsSpecialEvent {
		from, err := domain.ParseClock(e.EventStartTime)
		if err != nil {
			return nil, err
		}
		to, err := domain.ParseClock(e.EventEndTime)
		if err != nil {
			return nil, err
		}
		exhibition.EventStartTime, exhibition.EventEndTime = &from, &to
	}

	if err := utils.ValidateExhibition(exhibition, settings.Workdays); err != nil {
		return nil, err
	}
	return exhibition, nil
}

func (s *Seeder) createGuard(user *domain.User, availability int, periods []domain.PeriodKey, weekStart domain.Date) error {
	if err := s.store.CreateUser(user); err != nil {
		return err
	}
	guard, err := s.store.GetGuardByUserID(user.ID)
	if err != nil {
		return err
	}
	if availability > 0 {
		if err := s.store.UpdateGuardAvailability(guard.ID, availability, s.now()); err != nil {
			return err
		}
	}
	if len(periods) > 0 {
		if _, err := s.store.ReplaceWorkPeriods(guard.ID, periods, true, weekStart); err != nil {
			return err
		}
	}
	return nil
}

// RandomGuards creates n guards with a random availability and matching
// template work periods. It returns how many were created.
func (s *Seeder) RandomGuards(n int, emailDomain string) (int, error) {
	settings, err := s.settings()
	if err != nil {
		return 0, err
	}

	created := 0
	for range n {
		user, err := utils.GenerateRandomGuard(s.password, emailDomain)
		if err != nil {
			return created, err
		}

		periods := utils.GenerateRandomPeriods(settings.Workdays, 2+created%4)
		if err := s.createGuard(user, len(periods), periods, s.weekStart(settings)); err != nil {
			slog.Error("failed to create guard", "username", user.Username, "error", err)
			continue
		}
		created++
	}
	return created, nil
}

// RandomExhibitions creates n exhibitions running for the next eight weeks.
func (s *Seeder) RandomExhibitions(n int) (int, error) {
	settings, err := s.settings()
	if err != nil {
		return 0, err
	}

	today := domain.DateOf(s.now().In(s.loc))
	created := 0
	for i := range n {
		e := &domain.Exhibition{
			Name:              fmt.Sprintf("%s %d", utils.GenerateRandomExhibitionName(), i+1),
			NumberOfPositions: 1 + i%3,
			StartDate:         today.In(s.loc),
			EndDate:           today.AddDays(56).In(s.loc),
			OpenOn:            settings.Workdays,
		}
		if err := s.store.CreateExhibition(e); err != nil {
			slog.Error("failed to create exhibition", "name", e.Name, "error", err)
			continue
		}
		created++
	}
	return created, nil
}
