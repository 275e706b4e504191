package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *fakeStore) GetLatestHistory(positionID int64) (*domain.PositionHistory, error) {
	return s.latest[positionID], nil
}

func (s *fakeStore) GetHeldPositions(guardID int64, from, to domain.Date) ([]*domain.Position, error) {
	return s.HeldPositions(guardID, from, to)
}

func (s *fakeStore) ListHourlyRates() ([]*domain.HourlyRate, error) {
	return []*domain.HourlyRate{
		{ID: 1, Rate: 10, EffectiveFrom: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}, nil
}

func assignTo(s *fakeStore, positionID, guardID int64) {
	s.latest[positionID] = &domain.PositionHistory{ID: positionID, PositionID: positionID, GuardID: guardID, Action: domain.ActionAssigned}
}

type cancelResult struct {
	History        domain.PositionHistory `json:"history"`
	PenaltyApplied *pointSummary          `json:"penalty_applied"`
}

func TestCancelPositionThisWeek(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 10, "2026-10-16", domain.NewClock(11, 0), domain.NewClock(15, 0))

	rec, body := env.do(t, http.MethodPost, "/api/position-history/10/cancel/", testGuard, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, "not currently assigned")

	assignTo(env.store, 10, 7)
	rec, body = env.do(t, http.MethodPost, "/api/position-history/10/cancel/", testGuard, nil)
	require.Equal(t, http.StatusCreated, rec.Code, body.Message)

	var res cancelResult
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, domain.ActionCanceled, res.History.Action)
	assert.Equal(t, int64(7), res.History.GuardID)
	require.NotNil(t, res.PenaltyApplied)
	assert.Equal(t, -2.5, res.PenaltyApplied.Points)
	assert.Equal(t, "Penalty for canceling position before position day (Impressionists, 2026-10-16)", res.PenaltyApplied.Explanation)
	assert.Equal(t, domain.ActionCanceled, env.store.latest[10].Action)
}

func TestCancelPositionOnPositionDay(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 11, "2026-10-14", domain.NewClock(15, 0), domain.NewClock(19, 0))
	assignTo(env.store, 11, 7)

	rec, body := env.do(t, http.MethodPost, "/api/position-history/11/cancel/", testGuard, nil)
	require.Equal(t, http.StatusCreated, rec.Code, body.Message)

	var res cancelResult
	require.NoError(t, json.Unmarshal(body.Data, &res))
	require.NotNil(t, res.PenaltyApplied)
	assert.Equal(t, -5.0, res.PenaltyApplied.Points)
}

func TestCancelStartedPosition(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 12, "2026-10-13", domain.NewClock(11, 0), domain.NewClock(15, 0))
	assignTo(env.store, 12, 7)

	rec, body := env.do(t, http.MethodPost, "/api/position-history/12/cancel/", testGuard, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, "already started")
}

func TestAdminCancelNamesHolder(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 10, "2026-10-16", domain.NewClock(11, 0), domain.NewClock(15, 0))
	assignTo(env.store, 10, 7)

	rec, _ := env.do(t, http.MethodPost, "/api/position-history/10/cancel/", testAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := env.do(t, http.MethodPost, "/api/position-history/10/cancel/", testAdmin, map[string]any{"guard_id": 99})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, "not assigned")

	rec, _ = env.do(t, http.MethodPost, "/api/position-history/10/cancel/", testAdmin, map[string]any{"guard_id": 7})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCancelOtherGuardsPosition(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 10, "2026-10-16", domain.NewClock(11, 0), domain.NewClock(15, 0))
	assignTo(env.store, 10, 99)

	rec, _ := env.do(t, http.MethodPost, "/api/position-history/10/cancel/", testGuard, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, domain.ActionAssigned, env.store.latest[10].Action)
}

func TestReportLateness(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 11, "2026-10-14", domain.NewClock(15, 0), domain.NewClock(19, 0))
	addPosition(env.store, 12, "2026-10-15", domain.NewClock(15, 0), domain.NewClock(19, 0))
	assignTo(env.store, 11, 7)
	assignTo(env.store, 12, 7)

	rec, _ := env.do(t, http.MethodPost, "/api/position-history/11/report-lateness/", testAdmin, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := env.do(t, http.MethodPost, "/api/position-history/12/report-lateness/", testGuard, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, "today")

	rec, body = env.do(t, http.MethodPost, "/api/position-history/11/report-lateness/", testGuard, map[string]any{"estimated_delay_minutes": 15})
	require.Equal(t, http.StatusCreated, rec.Code, body.Message)

	var res struct {
		PenaltyApplied pointSummary `json:"penalty_applied"`
		AdminsNotified int          `json:"admins_notified"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, -2.0, res.PenaltyApplied.Points)
	assert.Equal(t, "Penalty for being late with notification (Impressionists, 2026-10-14) (15 min delay)", res.PenaltyApplied.Explanation)
	assert.Equal(t, 1, res.AdminsNotified)

	require.Len(t, env.mail.sent, 1)
	assert.Equal(t, domain.MailLatenessReport, env.mail.sent[0].Type)
	assert.Equal(t, testAdmin.Email, env.mail.sent[0].To)
}

func TestBulkCancel(t *testing.T) {
	env := newTestEnv(t)
	friday := addPosition(env.store, 40, "2026-10-16", domain.NewClock(11, 0), domain.NewClock(15, 0))
	nextTuesday := addPosition(env.store, 41, "2026-10-20", domain.NewClock(11, 0), domain.NewClock(15, 0))
	env.store.held = []*domain.Position{friday, nextTuesday}

	rec, _ := env.do(t, http.MethodPost, "/api/position-history/bulk-cancel/", testAdmin, map[string]string{"start_date": "2026-10-15", "end_date": "2026-10-25"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/position-history/bulk-cancel/", testGuard, map[string]string{"start_date": "2026-10-15"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/position-history/bulk-cancel/", testGuard, map[string]string{"start_date": "2026-10-25", "end_date": "2026-10-15"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/position-history/bulk-cancel/", testGuard, map[string]string{"start_date": "2026-11-01", "end_date": "2026-11-07"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := env.do(t, http.MethodPost, "/api/position-history/bulk-cancel/", testGuard, map[string]string{"start_date": "2026-10-15", "end_date": "2026-10-25"})
	require.Equal(t, http.StatusOK, rec.Code, body.Message)

	var res struct {
		CancelledCount int             `json:"cancelled_count"`
		PenaltyApplied *pointSummary   `json:"penalty_applied"`
		Positions      []positionBrief `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, 2, res.CancelledCount)
	require.Len(t, res.Positions, 2)
	require.NotNil(t, res.PenaltyApplied)
	assert.Equal(t, -2.5, res.PenaltyApplied.Points)
	assert.Equal(t, "Bulk cancel penalty - First position: Impressionists, 2026-10-16", res.PenaltyApplied.Explanation)

	require.Len(t, env.store.points, 1)
	assert.Equal(t, domain.ActionCanceled, env.store.latest[40].Action)
	assert.Equal(t, domain.ActionCanceled, env.store.latest[41].Action)
}

func TestMyWorkHistory(t *testing.T) {
	env := newTestEnv(t)
	env.store.held = []*domain.Position{
		addPosition(env.store, 50, "2026-10-13", domain.NewClock(11, 0), domain.NewClock(15, 0)),
		addPosition(env.store, 51, "2026-10-18", domain.NewClock(11, 0), domain.NewClock(14, 30)),
		addPosition(env.store, 52, "2026-11-03", domain.NewClock(11, 0), domain.NewClock(15, 0)),
	}

	rec, _ := env.do(t, http.MethodGet, "/api/position-history/my-work-history/", testGuard, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/position-history/my-work-history/?year=2026&month=13", testGuard, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := env.do(t, http.MethodGet, "/api/position-history/my-work-history/?year=2026&month=10", testGuard, nil)
	require.Equal(t, http.StatusOK, rec.Code, body.Message)

	var res struct {
		Period  string `json:"period"`
		Summary struct {
			TotalPositions int     `json:"total_positions"`
			TotalHours     float64 `json:"total_hours"`
			TotalEarnings  float64 `json:"total_earnings"`
		} `json:"summary"`
		Positions []struct {
			ID         int64   `json:"id"`
			IsSunday   bool    `json:"is_sunday"`
			HourlyRate float64 `json:"hourly_rate"`
			Earnings   float64 `json:"earnings"`
		} `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, "October 2026", res.Period)
	assert.Equal(t, 2, res.Summary.TotalPositions)
	assert.Equal(t, 7.5, res.Summary.TotalHours)
	assert.Equal(t, 92.5, res.Summary.TotalEarnings)

	require.Len(t, res.Positions, 2)
	assert.False(t, res.Positions[0].IsSunday)
	assert.Equal(t, 40.0, res.Positions[0].Earnings)
	assert.True(t, res.Positions[1].IsSunday)
	assert.Equal(t, 15.0, res.Positions[1].HourlyRate)
	assert.Equal(t, 52.5, res.Positions[1].Earnings)
}
