package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *fakeStore) UpdateUser(u *domain.User) error {
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body map[string]string
		msg  string
	}{
		{"wrong old password", map[string]string{"old_password": "nope", "new_password": "brand-new-pass", "new_password_confirm": "brand-new-pass"}, "old password is incorrect"},
		{"too short", map[string]string{"old_password": "secret-pass", "new_password": "short", "new_password_confirm": "short"}, "at least 8"},
		{"mismatch", map[string]string{"old_password": "secret-pass", "new_password": "brand-new-pass", "new_password_confirm": "brand-new-pas"}, "do not match"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := env.do(t, http.MethodPost, "/api/users/change_password/", testGuard, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, body.Message, tc.msg)
		})
	}

	rec, _ := env.do(t, http.MethodPost, "/api/users/change_password/", testGuard, map[string]string{
		"old_password":         "secret-pass",
		"new_password":         "brand-new-pass",
		"new_password_confirm": "brand-new-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/token/", nil, credentials{Username: "ana", Password: "secret-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = env.do(t, http.MethodPost, "/api/token/", nil, credentials{Username: "ana", Password: "brand-new-pass"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardProfileUpdate(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPatch, "/api/users/update_profile/", testGuard, map[string]any{
		"username":   "ana2",
		"role":       "admin",
		"is_active":  false,
		"first_name": "Anamarija",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "guards cannot change username, role, is_active", body.Message)

	stored := env.store.users[testGuard.ID]
	assert.Equal(t, "ana", stored.Username)
	assert.Equal(t, "Ana", stored.FirstName)
	assert.Equal(t, domain.RoleGuard, stored.Role)
	assert.True(t, stored.IsActive)

	rec, body = env.do(t, http.MethodPut, "/api/users/update_profile/", testGuard, map[string]any{"role": "guard"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "guards cannot change role", body.Message)

	rec, body = env.do(t, http.MethodPatch, "/api/users/update_profile/", testGuard, map[string]any{"first_name": "Anamarija"})
	require.Equal(t, http.StatusOK, rec.Code, body.Message)
	var updated domain.User
	require.NoError(t, json.Unmarshal(body.Data, &updated))
	assert.Equal(t, "Anamarija", updated.FirstName)
	assert.Equal(t, "Anamarija", env.store.users[testGuard.ID].FirstName)
	assert.Equal(t, "ana", env.store.users[testGuard.ID].Username)
}

func TestAdminUpdatesGuardUsername(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPatch, "/api/users/2/", testAdmin, map[string]any{"username": "ana.horvat"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana.horvat", env.store.users[testGuard.ID].Username)
}
