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

func TestSetAvailabilityOwnership(t *testing.T) {
	env := newTestEnv(t)
	other := &domain.User{ID: 3, Username: "ivo", Role: domain.RoleGuard, IsActive: true}
	env.store.users[other.ID] = other
	env.store.guards[8] = &domain.Guard{ID: 8, UserID: other.ID, User: other}

	rec, _ := env.do(t, http.MethodPost, "/api/guards/7/set_availability/", testAdmin, map[string]any{"available_shifts": 3})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/guards/8/set-availability/", testGuard, map[string]any{"available_shifts": 3})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/guards/7/set_availability/", testGuard, map[string]any{"available_shifts": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetAvailabilityAfterWindowCloses(t *testing.T) {
	env := newTestEnv(t)
	env.h.now = func() time.Time { return time.Date(2026, time.October, 14, 18, 0, 0, 0, time.UTC) }

	rec, body := env.do(t, http.MethodPost, "/api/guards/7/set_availability/", testGuard, map[string]any{"available_shifts": 3})
	require.Equal(t, http.StatusForbidden, rec.Code)

	var data map[string]string
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "2026-10-14T18:00:00Z", data["configuration_closed_at"])
}

func TestSetAvailabilityBeforeWeekIsInitialised(t *testing.T) {
	env := newTestEnv(t)
	env.store.settings.NextWeekStart = nil
	env.store.settings.NextWeekEnd = nil

	rec, _ := env.do(t, http.MethodPost, "/api/guards/7/set_availability/", testGuard, map[string]any{"available_shifts": 3})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGuardDetailIsPrivate(t *testing.T) {
	env := newTestEnv(t)
	other := &domain.User{ID: 3, Username: "ivo", Role: domain.RoleGuard, IsActive: true}
	env.store.users[other.ID] = other
	env.store.guards[8] = &domain.Guard{ID: 8, UserID: other.ID, User: other}

	rec, _ := env.do(t, http.MethodGet, "/api/guards/8/", testGuard, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/guards/7/", testGuard, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	other.IsActive = false
	rec, _ = env.do(t, http.MethodGet, "/api/guards/8/", testAdmin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
