package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/museum-staffing/shift-manager/backend/internal/cache"
	"github.com/museum-staffing/shift-manager/backend/internal/config"
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeStore keeps everything in memory. Methods it does not override panic
// through the embedded nil Store, which the recoverer turns into a 500.
type fakeStore struct {
	Store

	mu          sync.Mutex
	users       map[int64]*domain.User
	guards      map[int64]*domain.Guard
	settings    *domain.SystemSettings
	positions   map[int64]*domain.Position
	latest      map[int64]*domain.PositionHistory
	held        []*domain.Position
	heldBy      map[int64][]*domain.Position
	histories   []*domain.PositionHistory
	points      []*domain.Point
	nonWorking  []*domain.NonWorkingDay
	reports     []*domain.Report
	adminEmails []string
	blacklist   map[string]time.Time
	swaps       map[int64]*domain.SwapRequest
	notices     []*domain.Notification
	periods     map[int64][]*domain.WorkPeriod
	pingErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[int64]*domain.User),
		guards:    make(map[int64]*domain.Guard),
		positions: make(map[int64]*domain.Position),
		latest:    make(map[int64]*domain.PositionHistory),
		blacklist: make(map[string]time.Time),
		heldBy:    make(map[int64][]*domain.Position),
		swaps:     make(map[int64]*domain.SwapRequest),
		periods:   make(map[int64][]*domain.WorkPeriod),
	}
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) GetUserByID(id int64) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) GetUserByUsername(username string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) UpdateLastLogin(int64, time.Time) error { return nil }

func (s *fakeStore) GetAdminEmails() ([]string, error) { return s.adminEmails, nil }

func (s *fakeStore) BlacklistToken(jti string, _ int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[jti] = expiresAt
	return nil
}

func (s *fakeStore) IsTokenBlacklisted(jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blacklist[jti]
	return ok, nil
}

func (s *fakeStore) GetActiveSettings() (*domain.SystemSettings, error) {
	if s.settings == nil {
		return nil, sql.ErrNoRows
	}
	return s.settings, nil
}

func (s *fakeStore) CreateSettingsVersion(settings *domain.SystemSettings) error {
	s.settings = settings
	return nil
}

func (s *fakeStore) GetGuardByID(id int64) (*domain.Guard, error) {
	g, ok := s.guards[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return g, nil
}

func (s *fakeStore) GetGuardByUserID(userID int64) (*domain.Guard, error) {
	for _, g := range s.guards {
		if g.UserID == userID {
			return g, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) GetPositionByID(id int64) (*domain.Position, error) {
	p, ok := s.positions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (s *fakeStore) WithLockedPosition(id int64, fn func(p *domain.Position, w repository.PositionWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return sql.ErrNoRows
	}
	return fn(p, s)
}

func (s *fakeStore) WithPositionWriter(fn func(w repository.PositionWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

func (s *fakeStore) LatestHistory(positionID int64) (*domain.PositionHistory, error) {
	return s.latest[positionID], nil
}

// HeldPositions serves heldBy[guardID] when set and the shared held list otherwise.
func (s *fakeStore) HeldPositions(guardID int64, from, to domain.Date) ([]*domain.Position, error) {
	source := s.held
	if list, ok := s.heldBy[guardID]; ok {
		source = list
	}
	var held []*domain.Position
	for _, p := range source {
		if p.Date.Between(from, to) {
			held = append(held, p)
		}
	}
	return held, nil
}

func (s *fakeStore) CreateHistory(h *domain.PositionHistory) error {
	h.ID = int64(len(s.histories) + 1)
	s.histories = append(s.histories, h)
	s.latest[h.PositionID] = h
	return nil
}

func (s *fakeStore) CreatePoint(p *domain.Point) error {
	p.ID = int64(len(s.points) + 1)
	s.points = append(s.points, p)
	return nil
}

func (s *fakeStore) CreateNonWorkingDay(d *domain.NonWorkingDay, affects func(*domain.Position) bool) (int, error) {
	for _, existing := range s.nonWorking {
		if existing.Date == d.Date {
			return 0, &pgconn.PgError{Code: "23505", ConstraintName: "non_working_days_date_shift_key"}
		}
	}
	d.ID = int64(len(s.nonWorking) + 1)
	s.nonWorking = append(s.nonWorking, d)

	deleted := 0
	for id, p := range s.positions {
		if affects(p) {
			delete(s.positions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeStore) GetNonWorkingDayByID(id int64) (*domain.NonWorkingDay, error) {
	for _, d := range s.nonWorking {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) ListNonWorkingDays(from *domain.Date) ([]*domain.NonWorkingDay, error) {
	days := make([]*domain.NonWorkingDay, 0)
	for _, d := range s.nonWorking {
		if from == nil || !d.Date.Before(*from) {
			days = append(days, d)
		}
	}
	return days, nil
}

func (s *fakeStore) CreateReport(rep *domain.Report) error {
	rep.ID = int64(len(s.reports) + 1)
	s.reports = append(s.reports, rep)
	return nil
}

func (s *fakeStore) ListReports(exhibitionID *int64, oldestFirst bool) ([]*domain.Report, error) {
	return s.reports, nil
}

type mailRecorder struct {
	mu   sync.Mutex
	sent []domain.MailMessage
}

func (m *mailRecorder) Publish(_ context.Context, msg domain.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

var (
	testAdmin = &domain.User{ID: 1, Username: "admin", Email: "admin@museum.example", Role: domain.RoleAdmin, IsActive: true}
	testGuard = &domain.User{ID: 2, Username: "ana", FirstName: "Ana", LastName: "Horvat", Email: "ana@museum.example", Role: domain.RoleGuard, IsActive: true}
)

// testNow is Wednesday 10:00 of the current week.
var testNow = time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC)

func testSettings() *domain.SystemSettings {
	s := domain.DefaultSystemSettings()
	s.ID = 1
	thisStart := domain.MustParseDate("2026-10-12")
	thisEnd := thisStart.AddDays(6)
	nextStart := thisStart.AddDays(7)
	nextEnd := thisStart.AddDays(13)
	s.ThisWeekStart, s.ThisWeekEnd = &thisStart, &thisEnd
	s.NextWeekStart, s.NextWeekEnd = &nextStart, &nextEnd
	return s
}

type testEnv struct {
	h     *Handler
	store *fakeStore
	cache *cache.Memory
	mail  *mailRecorder
}

func newTestEnv(t *testing.T, middlewares ...func(http.Handler) http.Handler) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil, middlewares...)
}

// newTestEnvWith lets a test adjust the configuration before routes are mounted.
func newTestEnvWith(t *testing.T, configure func(*config.Config), middlewares ...func(http.Handler) http.Handler) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Timezone = "UTC"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.AccessExpiration = 300
	cfg.JWT.RefreshExpiration = 3600
	cfg.Session.CookieName = "museum_sessionid"
	cfg.Session.Expiration = 3600
	cfg.InitialAdmin.Username = "admin"
	if configure != nil {
		configure(cfg)
	}

	store := newFakeStore()
	store.settings = testSettings()
	store.adminEmails = []string{testAdmin.Email}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	for _, u := range []*domain.User{testAdmin, testGuard} {
		cp := *u
		cp.PasswordHash = string(hash)
		store.users[u.ID] = &cp
	}
	store.guards[7] = &domain.Guard{ID: 7, UserID: testGuard.ID, User: store.users[testGuard.ID]}

	c := cache.NewMemory()
	mail := &mailRecorder{}
	h, err := NewHandler(cfg, store, c, mail)
	require.NoError(t, err)
	h.now = func() time.Time { return testNow }
	h.RegisterRoutes(middlewares...)

	return &testEnv{h: h, store: store, cache: c, mail: mail}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path string, as *domain.User, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, err := e.h.signToken(as, tokenAccess, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.h.Mux.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/health/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	env.store.pingErr = assert.AnError
	rec, body = env.do(t, http.MethodGet, "/api/health/", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, body.Success)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/api/users/me/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me/", nil)
	req.Header.Set("Authorization", "Token abc")
	rw := httptest.NewRecorder()
	env.h.Mux.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestInactiveUserIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.store.users[testGuard.ID].IsActive = false

	rec, _ := env.do(t, http.MethodGet, "/api/users/me/", testGuard, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenPairAuthenticatesRequests(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/token/", nil, credentials{Username: "ana", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, body.Success)

	rec, body = env.do(t, http.MethodPost, "/api/token/", nil, credentials{Username: "ana", Password: "secret-pass"})
	require.Equal(t, http.StatusOK, rec.Code)
	var pair tokenPair
	require.NoError(t, json.Unmarshal(body.Data, &pair))
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	rw := httptest.NewRecorder()
	env.h.Mux.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)

	var me struct {
		Data domain.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &me))
	assert.Equal(t, "ana", me.Data.Username)

	// a refresh token is not an access token
	req = httptest.NewRequest(http.MethodGet, "/api/users/me/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Refresh)
	rw = httptest.NewRecorder()
	env.h.Mux.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestSessionLoginAndCheck(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/api/auth/check/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/login/", nil, credentials{Username: "admin", Password: "secret-pass"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check/", nil)
	req.AddCookie(cookies[0])
	rw := httptest.NewRecorder()
	env.h.Mux.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)

	var check struct {
		Data struct {
			Authenticated bool        `json:"authenticated"`
			User          domain.User `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &check))
	assert.True(t, check.Data.Authenticated)
	assert.Equal(t, "admin", check.Data.User.Username)
}

func TestAdminOnlyRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/exhibitions/", testGuard, map[string]any{"name": "Icons"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, body.Success)

	rec, _ = env.do(t, http.MethodPost, "/api/points/", testGuard, map[string]any{"guard_id": 7, "points": 1, "explanation": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestActiveSettingsAreCreatedWhenMissing(t *testing.T) {
	env := newTestEnv(t)
	env.store.settings = nil

	s, err := env.h.activeSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSystemSettings().HourlyRate, s.HourlyRate)
	assert.NotNil(t, env.store.settings)

	var cached domain.SystemSettings
	found, err := env.cache.Get(context.Background(), cache.SystemSettingsKey, &cached)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestConstraintViolation(t *testing.T) {
	assert.Equal(t, "", constraintViolation(assert.AnError))
	assert.Equal(t, "foreign_key", constraintViolation(&pgconn.PgError{Code: "23503", ConstraintName: "positions_exhibition_id_fkey"}))
	assert.Equal(t, "exhibitions_dates_check", constraintViolation(&pgconn.PgError{Code: "23514", ConstraintName: "exhibitions_dates_check"}))
	assert.Equal(t, "", constraintViolation(&pgconn.PgError{Code: "40001"}))
}

func TestSortExhibitions(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC) }
	exhibitions := []*domain.Exhibition{
		{Name: "Bronze Age", StartDate: day(3)},
		{Name: "Atelier", StartDate: day(9)},
		{Name: "Ceramics", StartDate: day(1)},
	}

	sortExhibitions(exhibitions, "name")
	assert.Equal(t, "Atelier", exhibitions[0].Name)

	sortExhibitions(exhibitions, "-start_date")
	assert.Equal(t, "Atelier", exhibitions[0].Name)
	assert.Equal(t, "Ceramics", exhibitions[2].Name)

	sortExhibitions(exhibitions, "unknown")
	assert.Equal(t, "Atelier", exhibitions[0].Name)
}
