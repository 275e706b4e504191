package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *fakeStore) CreateNotification(n *domain.Notification) error {
	n.ID = int64(len(s.notices) + 1)
	n.CreatedAt = testNow
	n.UpdatedAt = testNow
	s.notices = append(s.notices, n)
	return nil
}

func (s *fakeStore) GetNotificationByID(id int64) (*domain.Notification, error) {
	for _, n := range s.notices {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, sql.ErrNoRows
}

// ListNotifications returns the newest first like the repository.
func (s *fakeStore) ListNotifications(activeAt *time.Time) ([]*domain.Notification, error) {
	out := make([]*domain.Notification, 0)
	for i := len(s.notices) - 1; i >= 0; i-- {
		n := s.notices[i]
		if activeAt != nil && n.Expired(*activeAt) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *fakeStore) UpdateNotification(n *domain.Notification) error {
	for i, existing := range s.notices {
		if existing.ID == n.ID {
			s.notices[i] = n
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *fakeStore) DeleteNotification(id int64) error {
	for i, n := range s.notices {
		if n.ID == id {
			s.notices = append(s.notices[:i], s.notices[i+1:]...)
			return nil
		}
	}
	return nil
}

func notificationTitles(t *testing.T, raw json.RawMessage) []string {
	t.Helper()
	var list []domain.Notification
	require.NoError(t, json.Unmarshal(raw, &list))
	titles := make([]string, 0, len(list))
	for _, n := range list {
		titles = append(titles, n.Title)
	}
	return titles
}

func TestCreateNotificationValidation(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/api/admin-notifications/", testGuard, map[string]any{"title": "x", "message": "y", "cast_type": "broadcast"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	cases := []struct {
		payload map[string]any
		err     error
	}{
		{map[string]any{"message": "y", "cast_type": "broadcast"}, domain.ErrNotificationNoMessage},
		{map[string]any{"title": "x", "message": "y", "cast_type": "unicast"}, domain.ErrUnicastWithoutUser},
		{map[string]any{"title": "x", "message": "y", "cast_type": "multicast"}, domain.ErrMulticastWithoutDate},
		{map[string]any{"title": "x", "message": "y", "cast_type": "anycast"}, domain.ErrUnknownCastType},
		{map[string]any{"title": "x", "message": "y", "cast_type": "broadcast", "shift_type": "night"}, domain.ErrUnknownShiftType},
	}
	for _, tc := range cases {
		rec, body := env.do(t, http.MethodPost, "/api/admin-notifications/", testAdmin, tc.payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.err.Error())
		assert.Equal(t, tc.err.Error(), body.Message)
	}

	rec, body := env.do(t, http.MethodPost, "/api/admin-notifications/", testAdmin, map[string]any{"title": "Closed", "message": "The museum is closed on Monday", "cast_type": "broadcast"})
	require.Equal(t, http.StatusCreated, rec.Code, body.Message)
	require.Len(t, env.store.notices, 1)
	require.NotNil(t, env.store.notices[0].CreatedByID)
	assert.Equal(t, testAdmin.ID, *env.store.notices[0].CreatedByID)
}

func TestGuardSeesAddressedNotifications(t *testing.T) {
	env := newTestEnv(t)
	p := addPosition(env.store, 60, "2026-10-16", domain.NewClock(11, 0), domain.NewClock(15, 0))
	env.store.heldBy[7] = []*domain.Position{p}

	friday := domain.MustParseDate("2026-10-16")
	saturday := domain.MustParseDate("2026-10-17")
	morning, afternoon := domain.ShiftMorning, domain.ShiftAfternoon
	yesterday := testNow.Add(-24 * time.Hour)
	otherUser := int64(99)
	exhibition := int64(3)

	for _, n := range []*domain.Notification{
		{Title: "everyone", Message: "m", CastType: domain.CastBroadcast},
		{Title: "to ana", Message: "m", CastType: domain.CastUnicast, ToUserID: &testGuard.ID},
		{Title: "to someone else", Message: "m", CastType: domain.CastUnicast, ToUserID: &otherUser},
		{Title: "friday morning", Message: "m", CastType: domain.CastMulticast, NotificationDate: &friday, ShiftType: &morning, ExhibitionID: &exhibition},
		{Title: "friday afternoon", Message: "m", CastType: domain.CastMulticast, NotificationDate: &friday, ShiftType: &afternoon},
		{Title: "saturday", Message: "m", CastType: domain.CastMulticast, NotificationDate: &saturday},
		{Title: "expired", Message: "m", CastType: domain.CastBroadcast, ExpiresAt: &yesterday},
	} {
		require.NoError(t, env.store.CreateNotification(n))
	}

	rec, body := env.do(t, http.MethodGet, "/api/admin-notifications/", testGuard, nil)
	require.Equal(t, http.StatusOK, rec.Code, body.Message)
	assert.Equal(t, []string{"friday morning", "to ana", "everyone"}, notificationTitles(t, body.Data))

	rec, body = env.do(t, http.MethodGet, "/api/admin-notifications/?ordering=created_at", testGuard, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"everyone", "to ana", "friday morning"}, notificationTitles(t, body.Data))

	rec, body = env.do(t, http.MethodGet, "/api/admin-notifications/", testAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, notificationTitles(t, body.Data), 7)

	rec, body = env.do(t, http.MethodGet, "/api/admin-notifications/?active=true", testAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, notificationTitles(t, body.Data), 6)

	rec, _ = env.do(t, http.MethodGet, "/api/admin-notifications/2/", testGuard, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, http.MethodGet, "/api/admin-notifications/3/", testGuard, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = env.do(t, http.MethodGet, "/api/admin-notifications/7/", testGuard, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = env.do(t, http.MethodGet, "/api/admin-notifications/7/", testAdmin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateAndDeleteNotification(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.CreateNotification(&domain.Notification{Title: "Closed", Message: "m", CastType: domain.CastBroadcast}))

	rec, _ := env.do(t, http.MethodPatch, "/api/admin-notifications/1/", testGuard, map[string]any{"title": "Open"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := env.do(t, http.MethodPatch, "/api/admin-notifications/1/", testAdmin, map[string]any{"cast_type": "unicast"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ErrUnicastWithoutUser.Error(), body.Message)
	assert.Equal(t, domain.CastBroadcast, env.store.notices[0].CastType)

	rec, body = env.do(t, http.MethodPatch, "/api/admin-notifications/1/", testAdmin, map[string]any{"title": "Open again"})
	require.Equal(t, http.StatusOK, rec.Code, body.Message)
	assert.Equal(t, "Open again", env.store.notices[0].Title)
	assert.Equal(t, "m", env.store.notices[0].Message)

	rec, _ = env.do(t, http.MethodDelete, "/api/admin-notifications/1/", testAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.store.notices)

	rec, _ = env.do(t, http.MethodGet, "/api/admin-notifications/1/", testAdmin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportLatenessNotifiesShift(t *testing.T) {
	env := newTestEnv(t)
	addPosition(env.store, 11, "2026-10-14", domain.NewClock(15, 0), domain.NewClock(19, 0))
	assignTo(env.store, 11, 7)

	rec, body := env.do(t, http.MethodPost, "/api/position-history/11/report-lateness/", testGuard, nil)
	require.Equal(t, http.StatusCreated, rec.Code, body.Message)

	var res struct {
		NotificationCreated bool `json:"notification_created"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.True(t, res.NotificationCreated)

	require.Len(t, env.store.notices, 1)
	n := env.store.notices[0]
	assert.Equal(t, domain.CastMulticast, n.CastType)
	require.NotNil(t, n.NotificationDate)
	assert.Equal(t, domain.MustParseDate("2026-10-14"), *n.NotificationDate)
	require.NotNil(t, n.ShiftType)
	assert.Equal(t, domain.ShiftAfternoon, *n.ShiftType)
	require.NotNil(t, n.ExhibitionID)
	assert.Equal(t, int64(3), *n.ExhibitionID)
	assert.Equal(t, "Ana Horvat is running late for Impressionists at 15:00.", n.Message)
}
