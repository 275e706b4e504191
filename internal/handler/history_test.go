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

func addPosition(s *fakeStore, id int64, date string, start, end domain.Clock) *domain.Position {
	p := &domain.Position{
		ID:           id,
		ExhibitionID: 3,
		Date:         domain.MustParseDate(date),
		StartTime:    start,
		EndTime:      end,
		Exhibition:   &domain.Exhibition{ID: 3, Name: "Impressionists"},
	}
	s.positions[id] = p
	return p
}

type assignResult struct {
	History       domain.PositionHistory `json:"history"`
	RewardApplied *pointSummary          `json:"reward_applied"`
}

func TestAssignFreePosition(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 10, "2026-10-16", domain.NewClock(11, 0), domain.NewClock(15, 0))

	rec, body := env.do(t, http.MethodPost, "/api/position-history/10/assign/", testGuard, nil)
	require.Equal(t, http.StatusCreated, rec.Code, string(body.Data))

	var res assignResult
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, domain.ActionAssigned, res.History.Action)
	assert.Equal(t, int64(7), res.History.GuardID)
	assert.Nil(t, res.RewardApplied)
	assert.Empty(t, env.store.points)

	rec, _ = env.do(t, http.MethodPost, "/api/position-history/10/assign/", testGuard, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAssignCancelledPositionAwardsReplacement(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 10, "2026-10-16", domain.NewClock(11, 0), domain.NewClock(15, 0))
	env.store.latest[10] = &domain.PositionHistory{ID: 1, PositionID: 10, GuardID: 99, Action: domain.ActionCanceled}

	rec, body := env.do(t, http.MethodPost, "/api/position-history/10/assign/", testGuard, nil)
	require.Equal(t, http.StatusCreated, rec.Code, string(body.Data))

	var res assignResult
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, domain.ActionReplaced, res.History.Action)
	require.NotNil(t, res.RewardApplied)
	assert.Equal(t, 2.0, res.RewardApplied.Points)

	require.Len(t, env.store.points, 1)
	assert.Equal(t, "Award for jumping in on cancelled position (Impressionists, 2026-10-16)", env.store.points[0].Explanation)
}

func TestAssignRejectsOverlap(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 10, "2026-10-16", domain.NewClock(11, 0), domain.NewClock(15, 0))
	other := addPosition(env.store, 11, "2026-10-16", domain.NewClock(14, 0), domain.NewClock(18, 0))
	env.store.held = []*domain.Position{other}

	rec, body := env.do(t, http.MethodPost, "/api/position-history/10/assign/", testGuard, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var data struct {
		Conflicting positionBrief `json:"conflicting_position"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, int64(11), data.Conflicting.ID)
	assert.Empty(t, env.store.histories)
}

func TestAssignNextWeekBeforeManualWindow(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 20, "2026-10-21", domain.NewClock(11, 0), domain.NewClock(15, 0))

	rec, body := env.do(t, http.MethodPost, "/api/position-history/20/assign/", testGuard, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var data map[string]string
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "2026-10-14T20:00:00Z", data["manual_assignment_window_opens_at"])
}

func TestAssignOutsideSchedulingWeeks(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 30, "2026-11-30", domain.NewClock(11, 0), domain.NewClock(15, 0))

	rec, _ := env.do(t, http.MethodPost, "/api/position-history/30/assign/", testGuard, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminAssignNeedsGuard(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 10, "2026-10-16", domain.NewClock(11, 0), domain.NewClock(15, 0))

	rec, _ := env.do(t, http.MethodPost, "/api/position-history/10/assign/", testAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/position-history/10/assign/", testAdmin, map[string]any{"guard_id": 404})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/position-history/10/assign/", testAdmin, map[string]any{"guard_id": 7})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAssignMissingPosition(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/api/position-history/999/assign/", testGuard, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScheduleWindowError(t *testing.T) {
	opens := time.Date(2026, time.October, 14, 20, 0, 0, 0, time.UTC)

	assert.NoError(t, scheduleWindowError("this_week", nil, opens))
	assert.Error(t, scheduleWindowError("next_week", nil, opens))
}
