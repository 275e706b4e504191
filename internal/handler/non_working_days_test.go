package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateNonWorkingDayRemovesAffectedPositions(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 1, "2026-10-21", domain.NewClock(11, 0), domain.NewClock(15, 0))
	addPosition(env.store, 2, "2026-10-21", domain.NewClock(15, 0), domain.NewClock(19, 0))
	addPosition(env.store, 3, "2026-10-22", domain.NewClock(11, 0), domain.NewClock(15, 0))

	rec, body := env.do(t, http.MethodPost, "/api/non-working-days/", testAdmin, map[string]any{
		"date":              "2026-10-21",
		"is_full_day":       false,
		"non_working_shift": "morning",
		"reason":            "Staff training",
	})
	require.Equal(t, http.StatusCreated, rec.Code, string(body.Data))

	var data struct {
		Day     domain.NonWorkingDay `json:"non_working_day"`
		Deleted int                  `json:"deleted_positions"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, 1, data.Deleted)
	assert.Equal(t, "Staff training", data.Day.Reason)
	assert.NotContains(t, env.store.positions, int64(1))
	assert.Contains(t, env.store.positions, int64(2))
	assert.Contains(t, env.store.positions, int64(3))
}

func TestCreateNonWorkingDayValidation(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/api/non-working-days/", testAdmin, map[string]any{
		"date":        "2026-10-21",
		"is_full_day": false,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/non-working-days/", testAdmin, map[string]any{"is_full_day": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/non-working-days/", testAdmin, map[string]any{"date": "2026-10-21"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := env.do(t, http.MethodPost, "/api/non-working-days/", testAdmin, map[string]any{"date": "2026-10-21"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, "already exists")

	rec, _ = env.do(t, http.MethodPost, "/api/non-working-days/", testGuard, map[string]any{"date": "2026-10-23"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListNonWorkingDaysInFuture(t *testing.T) {
	env := newTestEnv(t)
	env.store.nonWorking = []*domain.NonWorkingDay{
		{ID: 1, Date: domain.MustParseDate("2026-10-01"), IsFullDay: true},
		{ID: 2, Date: domain.MustParseDate("2026-10-14"), IsFullDay: true},
		{ID: 3, Date: domain.MustParseDate("2026-12-25"), IsFullDay: true},
	}

	_, body := env.do(t, http.MethodGet, "/api/non-working-days/", testGuard, nil)
	var all []domain.NonWorkingDay
	require.NoError(t, json.Unmarshal(body.Data, &all))
	assert.Len(t, all, 3)

	_, body = env.do(t, http.MethodGet, "/api/non-working-days/?in_future=true", testGuard, nil)
	var upcoming []domain.NonWorkingDay
	require.NoError(t, json.Unmarshal(body.Data, &upcoming))
	require.Len(t, upcoming, 2)
	assert.Equal(t, int64(2), upcoming[0].ID)

	rec, _ := env.do(t, http.MethodGet, "/api/non-working-days/42/", testGuard, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
